package server

import (
	"strings"
	"testing"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GAMEHOST_ADDR", "127.0.0.1:0")
	t.Setenv("GAMEHOST_MAX_CONNECTIONS", "25")
	t.Setenv("GAMEHOST_SESSION_MSG_RATE", "50")
	t.Setenv("GAMEHOST_SESSION_MSG_BURST", "100")
	t.Setenv("GAMEHOST_NATS_URL", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "pretty")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != "127.0.0.1:0" || cfg.MaxConnections != 25 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SessionMsgRate != 50 || cfg.SessionMsgBurst != 100 {
		t.Fatalf("session limits = %v/%d", cfg.SessionMsgRate, cfg.SessionMsgBurst)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "pretty" {
		t.Fatalf("log config = %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Addr:            ":3003",
			MaxConnections:  100,
			SessionMsgRate:  200,
			SessionMsgBurst: 400,
			LogLevel:        "info",
			LogFormat:       "json",
		}
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }, "GAMEHOST_ADDR"},
		{"zero connections", func(c *Config) { c.MaxConnections = 0 }, "GAMEHOST_MAX_CONNECTIONS"},
		{"zero msg rate", func(c *Config) { c.SessionMsgRate = 0 }, "GAMEHOST_SESSION_MSG_RATE"},
		{"zero burst", func(c *Config) { c.SessionMsgBurst = 0 }, "GAMEHOST_SESSION_MSG_BURST"},
		{"bad level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate accepted a bad config")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %s", err, tc.wantErr)
			}
		})
	}
}
