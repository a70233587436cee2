// Package config provides environment-based configuration for the portal API.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/papeesearch/portal/pkg/idtoken"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the portal API.
type Config struct {
	// Server configuration
	APIHost         string        `env:"PORTAL_API_HOST" envDefault:"0.0.0.0"`
	APIPort         int           `env:"PORTAL_API_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"PORTAL_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Storage
	Storage     string `env:"PORTAL_STORAGE" envDefault:"postgres"`
	DatabaseDSN string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/portal?sslmode=disable"`

	// Authentication
	JWTSecret string        `env:"PORTAL_JWT_SECRET"`
	JWTExpiry time.Duration `env:"PORTAL_JWT_EXPIRY" envDefault:"24h"`

	// Identifier obfuscation for URLs
	IDSecret string `env:"PORTAL_ID_SECRET"`
	IDMode   string `env:"PORTAL_ID_MODE" envDefault:"gcm"`

	// PublicBaseURL prefixes shareable links, e.g. https://portal.example.org
	PublicBaseURL string `env:"PORTAL_PUBLIC_BASE_URL"`

	// PermissionsFile optionally replaces the built-in permission catalog.
	PermissionsFile string `env:"PORTAL_PERMISSIONS_FILE"`

	Log LogConfig
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `env:"PORTAL_LOG_LEVEL" envDefault:"info"`
	Format string `env:"PORTAL_LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from environment variables and validates it.
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

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("PORTAL_JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("PORTAL_JWT_SECRET must be at least 32 characters")
	}
	if c.IDSecret == "" {
		return fmt.Errorf("PORTAL_ID_SECRET is required")
	}
	if len(c.IDSecret) < 16 {
		return fmt.Errorf("PORTAL_ID_SECRET must be at least 16 characters")
	}
	switch idtoken.Mode(c.IDMode) {
	case idtoken.ModeGCM, idtoken.ModeLegacy:
	default:
		return fmt.Errorf("PORTAL_ID_MODE must be %q or %q", idtoken.ModeGCM, idtoken.ModeLegacy)
	}
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("PORTAL_STORAGE must be %q or %q", StoragePostgres, StorageMemory)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("PORTAL_LOG_FORMAT must be json or text")
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing, but a value that
// cannot be parsed is still an error.
func LoadWithDefaults() (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		Environment: map[string]string{
			"PORTAL_JWT_SECRET": "development-secret-key-min-32-chars",
			"PORTAL_ID_SECRET":  "development-id-secret",
			"PORTAL_STORAGE":    StorageMemory,
		},
	}
	// Real environment values win over the development fallbacks.
	for k, v := range env.ToMap(os.Environ()) {
		opts.Environment[k] = v
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// ObfuscatorConfig returns the settings for the URL identifier obfuscator.
func (c *Config) ObfuscatorConfig() idtoken.Config {
	return idtoken.Config{
		Secret: c.IDSecret,
		Mode:   idtoken.Mode(c.IDMode),
	}
}
