package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Document store backends.
const (
	StoreDisk   = "disk"
	StoreGridFS = "gridfs"
)

type Config struct {
	Port            string        `env:"PORT,             default=4000"`
	Env             string        `env:"ENV,              default=development"`
	JWTSecret       string        `env:"JWT_SECRET,       required"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ClientURL       string        `env:"CLIENT_URL,       default=http://localhost:5173"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Uploads UploadConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type UploadConfig struct {
	Store    string `env:"DOCUMENT_STORE,   default=disk"`
	Dir      string `env:"UPLOAD_DIR,       default=uploads"`
	MaxBytes int64  `env:"MAX_UPLOAD_BYTES, default=26214400"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://127.0.0.1:27017"`
	Database string `env:"MONGO_DB,  default=smart_rent"`
}

// RedisConfig is optional; an empty Addr disables bulk import replay protection.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l and validates the result.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Uploads.Store {
	case StoreDisk, StoreGridFS:
	default:
		return fmt.Errorf("DOCUMENT_STORE must be %q or %q, got %q", StoreDisk, StoreGridFS, c.Uploads.Store)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
