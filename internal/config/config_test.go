package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ORION_SIGNAL_JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Fatalf("unexpected store backend %q", cfg.Store.Backend)
	}
	if cfg.WS.IdleTimeout != time.Minute {
		t.Fatalf("unexpected idle timeout %v", cfg.WS.IdleTimeout)
	}
	if cfg.WS.PingInterval != 20*time.Second {
		t.Fatalf("unexpected ping interval %v", cfg.WS.PingInterval)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ORION_SIGNAL_JWT_SECRET", "s3cret")
	t.Setenv("ORION_SIGNAL_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("ORION_SIGNAL_LOG_LEVEL", "debug")
	t.Setenv("ORION_SIGNAL_LOG_FORMAT", "console")
	t.Setenv("ORION_SIGNAL_STORE_BACKEND", "postgres")
	t.Setenv("ORION_SIGNAL_STORE_POSTGRES_DSN", "postgres://relay@localhost/pairs")
	t.Setenv("ORION_SIGNAL_WS_IDLE_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "console" {
		t.Fatalf("unexpected log config %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Store.Backend != StorePostgres {
		t.Fatalf("unexpected backend %q", cfg.Store.Backend)
	}
	if cfg.WS.IdleTimeout != 90*time.Second {
		t.Fatalf("unexpected idle timeout %v", cfg.WS.IdleTimeout)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected jwt_secret error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		return Config{
			ListenAddr:      ":8080",
			LogLevel:        "info",
			LogFormat:       "json",
			ShutdownTimeout: 10 * time.Second,
			JWTSecret:       "s3cret",
			Store:           StoreConfig{Backend: StoreMemory, Timeout: 2 * time.Second},
			WS: WSConfig{
				IdleTimeout:          time.Minute,
				PingInterval:         20 * time.Second,
				MaxMessageBytes:      64 * 1024,
				MaxMessagesPerSecond: 50,
			},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = StorePostgres }, "postgres_dsn"},
		{"dynamodb without table", func(c *Config) { c.Store.Backend = StoreDynamoDB }, "dynamo_table"},
		{"ping not shorter than idle", func(c *Config) { c.WS.PingInterval = c.WS.IdleTimeout }, "ping_interval"},
		{"zero message cap", func(c *Config) { c.WS.MaxMessageBytes = 0 }, "max_message_bytes"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log.level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config should validate, got %v", err)
	}
}
