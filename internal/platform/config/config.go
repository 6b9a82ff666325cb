package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	APIPort  string     `env:"API_PORT" envDefault:"8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	JWTSecret                string `env:"JWT_SECRET"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	BcryptCost               int    `env:"BCRYPT_COST" envDefault:"10"`

	StoreDriver  string `env:"STORE_DRIVER" envDefault:"mongo"`
	DatabaseURL  string `env:"DATABASE_URL" envDefault:"mongodb://localhost:27017"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"blog_api"`
	PostgresDSN  string `env:"POSTGRES_DSN" envDefault:"host=localhost port=5432 user=user password=password dbname=blog_api sslmode=disable"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CleanupQueueName      string `env:"CLEANUP_QUEUE_NAME" envDefault:"blog_cleanup_jobs"`
	CleanupLockTTLSeconds int    `env:"CLEANUP_LOCK_TTL_SECONDS" envDefault:"60"`
	CleanupWorkerEnabled  bool   `env:"CLEANUP_WORKER_ENABLED" envDefault:"true"`
}

// AccessTokenTTL is the lifetime of tokens issued at login.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *Config) CleanupLockTTL() time.Duration {
	return time.Duration(c.CleanupLockTTLSeconds) * time.Second
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return parse(env.Options{})
}

// LoadFromMap builds a Config from the given variables only.
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("config: ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenExpireMinutes)
	}
	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.CleanupLockTTLSeconds <= 0 {
		c.CleanupLockTTLSeconds = 60
	}
	return nil
}
