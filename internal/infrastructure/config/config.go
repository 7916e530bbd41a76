package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Session store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	API       APIConfig
	Session   SessionConfig
	Messaging MessagingConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL, default=http://localhost:5000"`
	Timeout time.Duration `env:"API_TIMEOUT,  default=15s"`
}

type SessionConfig struct {
	Store        string        `env:"SESSION_STORE,       default=file"`
	TTL          time.Duration `env:"SESSION_TTL,         default=168h"`
	Dir          string        `env:"SESSION_DIR,         default=./data/sessions"`
	Cookie       string        `env:"SESSION_COOKIE,      default=batuta_sid"`
	CookieSecure bool          `env:"COOKIE_SECURE,       default=false"`
	GuardTimeout time.Duration `env:"GUARD_CHECK_TIMEOUT, default=10s"`
	FlashTTL     time.Duration `env:"FLASH_TTL,           default=3s"`
	SubmitTTL    time.Duration `env:"SUBMIT_GUARD_TTL,    default=5s"`
}

type MessagingConfig struct {
	PollInterval time.Duration `env:"UNREAD_POLL_INTERVAL, default=60s"`
	ReadWorkers  int           `env:"READ_WORKERS,         default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=batuta"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l, so tests can supply a map.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.Store {
	case StoreFile, StoreRedis, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.Session.Store)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: API_BASE_URL is required")
	}
	if c.Messaging.PollInterval <= 0 {
		return fmt.Errorf("config: UNREAD_POLL_INTERVAL must be positive")
	}
	return nil
}
