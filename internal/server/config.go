package server

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server configuration. Priority: environment variables
// over .env file over defaults.
type Config struct {
	Addr string `env:"GAMEHOST_ADDR" envDefault:":3003"`

	// MaxConnections caps concurrent client sessions process-wide.
	// Per-instance capacity is the simulation's max_players, enforced by
	// the instance itself.
	MaxConnections int `env:"GAMEHOST_MAX_CONNECTIONS" envDefault:"1000"`

	// Per-session inbound frame limits.
	SessionMsgRate  float64 `env:"GAMEHOST_SESSION_MSG_RATE" envDefault:"200"`
	SessionMsgBurst int     `env:"GAMEHOST_SESSION_MSG_BURST" envDefault:"400"`

	// NATSURL enables lobby event publishing when set.
	NATSURL string `env:"GAMEHOST_NATS_URL" envDefault:""`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadConfig reads configuration from an optional .env file and the
// environment.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; production supplies real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enums.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("GAMEHOST_ADDR is required")
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("GAMEHOST_MAX_CONNECTIONS must be > 0, got %d", c.MaxConnections)
	}
	if c.SessionMsgRate <= 0 {
		return fmt.Errorf("GAMEHOST_SESSION_MSG_RATE must be > 0, got %v", c.SessionMsgRate)
	}
	if c.SessionMsgBurst < 1 {
		return fmt.Errorf("GAMEHOST_SESSION_MSG_BURST must be > 0, got %d", c.SessionMsgBurst)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "pretty":
	default:
		return fmt.Errorf("LOG_FORMAT must be one of: json, pretty (got: %s)", c.LogFormat)
	}
	return nil
}
