package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the chat service.
// Environment variables are automatically parsed from the CHAT_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage. Driver "auto" resolves to sqlite when no Postgres DSN is set.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/nexchat.db"`

	// Profile directory. Empty URL means profiles are served from the store;
	// otherwise the cache fetches from the remote directory service.
	DirectoryURL    string        `envconfig:"DIRECTORY_URL" default:""`
	ProfileCacheTTL time.Duration `envconfig:"PROFILE_CACHE_TTL" default:"5m"`

	// Websocket transport
	WSReadBufferSize  int `envconfig:"WS_READ_BUFFER_SIZE" default:"1024"`
	WSWriteBufferSize int `envconfig:"WS_WRITE_BUFFER_SIZE" default:"1024"`
	WSSendQueueSize   int `envconfig:"WS_SEND_QUEUE_SIZE" default:"256"`
}

// ResolveDefaults validates driver selection and derives DBDriver when set
// to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
	}
	if c.ProfileCacheTTL <= 0 {
		return fmt.Errorf("PROFILE_CACHE_TTL must be positive")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Environment variables should be prefixed with CHAT_
// Example: CHAT_HTTP_PORT, CHAT_POSTGRES_DSN
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Dur("profile_cache_ttl", cfg.ProfileCacheTTL).
		Str("directory_url_present", func() string {
			if cfg.DirectoryURL != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment:       EnvTesting,
		HTTPPort:          8080,
		DBDriver:          "sqlite",
		SQLitePath:        ":memory:",
		ProfileCacheTTL:   5 * time.Minute,
		WSReadBufferSize:  1024,
		WSWriteBufferSize: 1024,
		WSSendQueueSize:   256,
	}
}

// IsTesting returns true if the environment is set to testing.
func (c *Config) IsTesting() bool { return c.Environment == EnvTesting }

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }
