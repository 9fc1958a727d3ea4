package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Credential store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Sheet document backends. BackendUsers keeps the document in the users table.
const (
	BackendUsers = "users"
	BackendMongo = "mongo"
	BackendMinio = "minio"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port string `env:"PORT" envDefault:"3000"`
	Mode string `env:"MODE" envDefault:"development"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./users.db"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	SheetBackend   string `env:"SHEET_BACKEND" envDefault:"users"`
	MongoURI       string `env:"MONGO_URI"`
	MongoDB        string `env:"MONGO_DB" envDefault:"charsheet"`
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"charsheets"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	PasswordHash string   `env:"PASSWORD_HASH" envDefault:"bcrypt"`
	MaxBodyBytes int64    `env:"MAX_BODY_BYTES" envDefault:"5242880"`
	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProd reports whether MODE selects production ("prod", "production", ...).
func (c *Config) IsProd() bool {
	return strings.HasPrefix(strings.ToLower(c.Mode), "p")
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %q", c.DatabaseDriver)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for driver %q", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.SheetBackend {
	case BackendUsers:
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for sheet backend %q", c.SheetBackend)
		}
	case BackendMinio:
		if c.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required for sheet backend %q", c.SheetBackend)
		}
	default:
		return fmt.Errorf("unknown SHEET_BACKEND %q", c.SheetBackend)
	}

	switch c.PasswordHash {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("unknown PASSWORD_HASH %q", c.PasswordHash)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}
