package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env      string
	LogLevel string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBUrl      string
	DBMaxConns int

	RedisHost string
	RedisPort string
	RedisDB   int

	JWTSecret          string
	JWTAccessDuration  time.Duration
	JWTRefreshDuration time.Duration

	ActivationTokenTTL time.Duration
	ResetTokenTTL      time.Duration
	ReaperInterval     time.Duration

	MinioHost   string
	MinioPort   string
	MinioUser   string
	MinioPass   string
	MinioUseSSL bool

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
	BaseURL  string
}

func LoadConfig() *Config {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBHost:     getEnv("ACCOUNT_DB_HOST", "localhost"),
		DBPort:     getEnv("ACCOUNT_DB_PORT", "5432"),
		DBUser:     getEnv("ACCOUNT_DB_USER", "account-service"),
		DBPassword: getEnv("ACCOUNT_DB_PASSWORD", "account-service"),
		DBName:     getEnv("ACCOUNT_DB_NAME", "account-service"),
		DBMaxConns: getEnvInt("ACCOUNT_DB_MAX_CONNS", 10),

		RedisHost: getEnv("REDIS_HOST", "localhost"),
		RedisPort: getEnv("REDIS_PORT", "6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		JWTSecret:          getEnv("JWT_SECRET", "account-service-secret-word"),
		JWTAccessDuration:  getEnvDuration("JWT_ACCESS_DURATION", 15*time.Minute),
		JWTRefreshDuration: getEnvDuration("JWT_REFRESH_DURATION", 7*24*time.Hour),

		ActivationTokenTTL: getEnvDuration("ACTIVATION_TOKEN_TTL", 15*time.Minute),
		ResetTokenTTL:      getEnvDuration("RESET_TOKEN_TTL", time.Hour),
		ReaperInterval:     getEnvDuration("REAPER_INTERVAL", 10*time.Minute),

		MinioHost:   getEnv("MINIO_HOST", "localhost"),
		MinioPort:   getEnv("MINIO_PORT", "9000"),
		MinioUser:   getEnv("MINIO_USER", "minioadmin"),
		MinioPass:   getEnv("MINIO_PASS", "minioadmin"),
		MinioUseSSL: getEnvBool("MINIO_USE_SSL", false),

		SMTPHost: getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USERNAME", ""),
		SMTPPass: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom: getEnv("FROM_EMAIL", ""),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
	}

	cfg.DBUrl = cfg.getDBUrl()

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (cfg *Config) getDBUrl() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
