package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bookgrid/account-service/internal/config"
	"github.com/bookgrid/account-service/internal/mailer"
	"github.com/bookgrid/account-service/internal/migration"
	"github.com/bookgrid/account-service/internal/repository"
	"github.com/bookgrid/account-service/internal/service"
	"github.com/bookgrid/account-service/pkg/jwt"
	"github.com/bookgrid/account-service/pkg/logger"
)

// App assembles the account service's components from configuration. The
// transport layer lives elsewhere (the gateway); it embeds an App and exposes
// whichever operations it routes.
type App struct {
	Config   *config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Users    *repository.UserRepository
	Sessions *repository.SessionRepository
	Tokens   *service.TokenService
	Auth     *service.AuthService
	Profile  *service.ProfileService
	Storage  *service.StorageService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	dbPool, err := initDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Running database migrations...")
	if err := migration.AutoMigrate(cfg.DBUrl); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	redisClient, err := initRedis(ctx, cfg)
	if err != nil {
		dbPool.Close()
		return nil, err
	}

	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	tokenRepo := repository.NewTokenRepository(dbPool)

	tokenManager := jwt.NewTokenManager(jwt.TokenManagerConfig{
		SecretKey:       cfg.JWTSecret,
		AccessDuration:  cfg.JWTAccessDuration,
		RefreshDuration: cfg.JWTRefreshDuration,
	})

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		dbPool.Close()
		redisClient.Close()
		return nil, err
	}

	templateRender := mailer.NewTemplateRender()
	emailSender := &mailer.SMTPMailer{
		Host:    cfg.SMTPHost,
		Port:    cfg.SMTPPort,
		User:    cfg.SMTPUser,
		Pass:    cfg.SMTPPass,
		From:    cfg.SMTPFrom,
		BaseURL: cfg.BaseURL,
		Render:  templateRender,
	}

	tokens := service.NewTokenService(tokenRepo)
	limiter := service.NewRedisLoginLimiter(redisClient)

	auth := service.NewAuthService(
		userRepo,
		sessionRepo,
		tokens,
		tokenManager,
		emailSender,
		limiter,
		service.AuthServiceConfig{
			ActivationTokenTTL: cfg.ActivationTokenTTL,
			ResetTokenTTL:      cfg.ResetTokenTTL,
		},
	)

	profile := service.NewProfileService(userRepo, storage)

	return &App{
		Config:   cfg,
		DB:       dbPool,
		Redis:    redisClient,
		Users:    userRepo,
		Sessions: sessionRepo,
		Tokens:   tokens,
		Auth:     auth,
		Profile:  profile,
		Storage:  storage,
	}, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
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

func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		DB:   cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Connected to Redis")
	return client, nil
}
