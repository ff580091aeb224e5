// Package config reads process configuration from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"taller/internal/core/tenant"
	"taller/internal/domain/auth"
	"taller/pkg/logger"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s"`

	MetaDatabaseURL string `envconfig:"META_DATABASE_URL" required:"true"`
	// AdminDatabaseURL creates tenant databases; defaults to the meta URL.
	AdminDatabaseURL string `envconfig:"POSTGRES_ADMIN_URL"`

	TenantDB TenantDBConfig `envconfig:"TENANT_DB"`

	JWTSecret    string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer    string        `envconfig:"JWT_ISSUER" default:"taller"`
	JWTAccessTTL time.Duration `envconfig:"JWT_ACCESS_TTL" default:"15m"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	PhotoDir      string `envconfig:"PHOTO_DIR" default:"./data/photos"`
	PhotoMaxBytes int64  `envconfig:"PHOTO_MAX_BYTES" default:"10485760"`

	// RateLimit uses the limiter format, e.g. "120-M".
	RateLimit     string `envconfig:"RATE_LIMIT" default:"120-M"`
	AuthRateLimit string `envconfig:"AUTH_RATE_LIMIT" default:"10-M"`

	IdempotencyTTL   time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	SettingsCacheTTL time.Duration `envconfig:"SETTINGS_CACHE_TTL" default:"5m"`

	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"5"`
	OutboxInterval    time.Duration `envconfig:"OUTBOX_INTERVAL" default:"2s"`
	OutboxBatchSize   int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
}

type TenantDBConfig struct {
	User            string        `envconfig:"USER" required:"true"`
	Password        string        `envconfig:"PASSWORD" required:"true"`
	SSLMode         string        `envconfig:"SSLMODE" default:"disable"`
	MaxPools        int           `envconfig:"MAX_POOLS" default:"100"`
	MaxConnsPerPool int32         `envconfig:"MAX_CONNS_PER_POOL" default:"10"`
	PoolIdleTimeout time.Duration `envconfig:"POOL_IDLE_TIMEOUT" default:"30m"`
	Prewarm         bool          `envconfig:"PREWARM" default:"false"`
}

// Load reads .env when present and then the environment. Variables already set
// in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	if c.PhotoMaxBytes <= 0 {
		return errors.New("PHOTO_MAX_BYTES must be positive")
	}
	if c.WorkerConcurrency <= 0 {
		return errors.New("WORKER_CONCURRENCY must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) AdminURL() string {
	if c.AdminDatabaseURL != "" {
		return c.AdminDatabaseURL
	}
	return c.MetaDatabaseURL
}

func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Development: c.AppEnv == "development"}
}

func (c *Config) TenantManager() tenant.ManagerConfig {
	m := tenant.DefaultManagerConfig()
	m.DBUser = c.TenantDB.User
	m.DBPassword = c.TenantDB.Password
	m.SSLMode = c.TenantDB.SSLMode
	if c.TenantDB.MaxPools > 0 {
		m.MaxTotalPools = c.TenantDB.MaxPools
	}
	if c.TenantDB.MaxConnsPerPool > 0 {
		m.MaxConnsPerTenant = c.TenantDB.MaxConnsPerPool
	}
	if c.TenantDB.PoolIdleTimeout > 0 {
		m.PoolIdleTimeout = c.TenantDB.PoolIdleTimeout
	}
	return m
}

func (c *Config) JWT() auth.JWTConfig {
	j := auth.DefaultJWTConfig(c.JWTSecret)
	j.Issuer = c.JWTIssuer
	j.AccessTokenTTL = c.JWTAccessTTL
	return j
}
