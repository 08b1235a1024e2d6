package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/bookgrid/account-service/internal/config"
	"github.com/bookgrid/account-service/internal/migration"
	"github.com/bookgrid/account-service/internal/repository"
	"github.com/bookgrid/account-service/internal/service"
	"github.com/bookgrid/account-service/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logger.MustInit(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "account-reaper",
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := initDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("Running database migrations...")
	if err := migration.AutoMigrate(cfg.DBUrl); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Migrations completed successfully")

	tokenRepo := repository.NewTokenRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	tokens := service.NewTokenService(tokenRepo)

	logger.Info("Reaper starting", zap.Duration("interval", cfg.ReaperInterval))

	ticker := time.NewTicker(cfg.ReaperInterval)
	defer ticker.Stop()

	reap(ctx, tokens, sessionRepo)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reaper stopped")
			return
		case <-ticker.C:
			reap(ctx, tokens, sessionRepo)
		}
	}
}

func reap(ctx context.Context, tokens *service.TokenService, sessions *repository.SessionRepository) {
	n, err := tokens.Reap(ctx)
	if err != nil {
		logger.Error("Failed to reap verification tokens", zap.Error(err))
	} else if n > 0 {
		logger.Info("Reaped expired verification tokens", zap.Int64("count", n))
	}

	m, err := sessions.DeleteExpired(ctx)
	if err != nil {
		logger.Error("Failed to reap sessions", zap.Error(err))
	} else if m > 0 {
		logger.Info("Reaped stale sessions", zap.Int64("count", m))
	}
}

func initDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL")
	return pool, nil
}
