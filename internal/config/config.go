// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds configuration for all shortlink binaries.
// All fields are populated from environment variables; each binary reads
// the subset it needs.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Link record store / hit store (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Distributed cache + click event broker (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Internal link lookup API base URL, used by the redirect service
	// as the authoritative fallback on cache miss.
	LinkAPIURL string `env:"LINK_API_URL" envDefault:"http://localhost:8081"`

	// Cross-origin access to the link management API. Comma-separated
	// origin list; empty denies all cross-origin requests.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Resolution path timeouts. A hung cache or lookup dependency must
	// never hang a redirect; both reads are bounded.
	CacheTimeout  time.Duration `env:"CACHE_TIMEOUT" envDefault:"150ms"`
	LookupTimeout time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"2s"`

	// Analytics consumer settings
	ConsumerWorkers       int           `env:"CONSUMER_WORKERS" envDefault:"2"`
	ConsumerBlock         time.Duration `env:"CONSUMER_BLOCK" envDefault:"5s"`
	ConsumerMaxDeliveries int64         `env:"CONSUMER_MAX_DELIVERIES" envDefault:"5"`
}

// GetCORSAllowedOrigins parses the comma-separated origins string.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
