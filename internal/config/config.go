package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config is populated from environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Engine   EngineConfig
	Kafka    KafkaConfig
	Queue    QueueConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"Promotion Engine"`
	Environment string `env:"APP_ENV" envDefault:"development"` // development, staging, production
	Port        string `env:"APP_PORT" envDefault:"8080"`
	Version     string `env:"APP_VERSION" envDefault:"1.0.0"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

type DatabaseConfig struct {
	Host              string        `env:"DB_HOST" envDefault:"localhost"`
	Port              int           `env:"DB_PORT" envDefault:"5432"`
	User              string        `env:"DB_USER" envDefault:"postgres"`
	Password          string        `env:"DB_PASSWORD"`
	Name              string        `env:"DB_NAME" envDefault:"promotions"`
	SSLMode           string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns          int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"5m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"1m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	MaxRetries        int           `env:"DB_MAX_RETRIES" envDefault:"5"`
	RetryDelay        time.Duration `env:"DB_RETRY_DELAY" envDefault:"1s"`
	ConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type JWTConfig struct {
	Secret            string        `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	AccessTokenExpiry time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
}

// EngineConfig tunes evaluation and redemption.
type EngineConfig struct {
	// CurrencyScale is the number of minor-unit digits, 2 for USD, 0 for VND.
	CurrencyScale   int32         `env:"CURRENCY_SCALE" envDefault:"2"`
	LedgerTimeout   time.Duration `env:"LEDGER_TIMEOUT" envDefault:"2s"`
	LedgerBackend   string        `env:"LEDGER_BACKEND" envDefault:"postgres"` // postgres, memory
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"30s"`
}

type KafkaConfig struct {
	// Empty disables event publishing.
	Brokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	TopicRedeemed string   `env:"KAFKA_TOPIC_REDEEMED" envDefault:"promotion.redeemed"`
}

type QueueConfig struct {
	Concurrency int `env:"QUEUE_CONCURRENCY" envDefault:"10"`

	// Cron spec or "@every <duration>"; empty disables the refresh.
	CatalogRefreshSpec string `env:"CATALOG_REFRESH_SPEC" envDefault:"@every 1m"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// Validate critical config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects unsafe or nonsensical values.
func (c *Config) Validate() error {
	if c.Engine.CurrencyScale < 0 || c.Engine.CurrencyScale > 8 {
		return fmt.Errorf("CURRENCY_SCALE must be between 0 and 8, got %d", c.Engine.CurrencyScale)
	}
	if c.Engine.LedgerTimeout <= 0 {
		return fmt.Errorf("LEDGER_TIMEOUT must be positive")
	}
	if c.Engine.CatalogCacheTTL < 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must not be negative")
	}
	switch c.Engine.LedgerBackend {
	case "postgres", "memory":
	default:
		return fmt.Errorf("LEDGER_BACKEND must be postgres or memory, got %q", c.Engine.LedgerBackend)
	}

	// Production must not run on defaults
	if c.App.Environment == "production" {
		if c.JWT.Secret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
		if c.Engine.LedgerBackend == "memory" {
			return fmt.Errorf("LEDGER_BACKEND=memory is not allowed in production")
		}
	}

	return nil
}
