// Package config loads and validates the relay's runtime configuration from
// the environment.
//
// Every key is read as ORION_SIGNAL_<KEY> with dots replaced by underscores,
// e.g. store.backend becomes ORION_SIGNAL_STORE_BACKEND.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Pairing store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
)

type Config struct {
	// ListenAddr is the host:port the HTTP server binds.
	ListenAddr string

	LogLevel  string
	LogFormat string

	// ShutdownTimeout bounds graceful drain on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration

	// JWTSecret is the shared HS256 secret tokens are verified against.
	JWTSecret string

	Store StoreConfig
	WS    WSConfig
}

type StoreConfig struct {
	Backend     string
	Timeout     time.Duration
	PostgresDSN string
	DynamoTable string
}

type WSConfig struct {
	IdleTimeout          time.Duration
	PingInterval         time.Duration
	MaxMessageBytes      int64
	MaxMessagesPerSecond int64
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORION_SIGNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.timeout", 2*time.Second)
	v.SetDefault("ws.idle_timeout", time.Minute)
	v.SetDefault("ws.ping_interval", 20*time.Second)
	v.SetDefault("ws.max_message_bytes", 64*1024)
	v.SetDefault("ws.max_messages_per_second", 50)

	cfg := Config{
		ListenAddr:      v.GetString("listen_addr"),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		JWTSecret:       v.GetString("jwt_secret"),
		Store: StoreConfig{
			Backend:     v.GetString("store.backend"),
			Timeout:     v.GetDuration("store.timeout"),
			PostgresDSN: v.GetString("store.postgres_dsn"),
			DynamoTable: v.GetString("store.dynamo_table"),
		},
		WS: WSConfig{
			IdleTimeout:          v.GetDuration("ws.idle_timeout"),
			PingInterval:         v.GetDuration("ws.ping_interval"),
			MaxMessageBytes:      v.GetInt64("ws.max_message_bytes"),
			MaxMessagesPerSecond: v.GetInt64("ws.max_messages_per_second"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the relay cannot run with. Called at
// startup so a bad deployment fails immediately rather than at first
// connection.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log.format must be json or console, got %q", c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres backend")
		}
	case StoreDynamoDB:
		if c.Store.DynamoTable == "" {
			return errors.New("store.dynamo_table is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Store.Timeout <= 0 {
		return errors.New("store.timeout must be positive")
	}

	if c.WS.IdleTimeout <= 0 {
		return errors.New("ws.idle_timeout must be positive")
	}
	if c.WS.PingInterval <= 0 {
		return errors.New("ws.ping_interval must be positive")
	}
	if c.WS.PingInterval >= c.WS.IdleTimeout {
		return errors.New("ws.ping_interval must be shorter than ws.idle_timeout")
	}
	if c.WS.MaxMessageBytes <= 0 {
		return errors.New("ws.max_message_bytes must be positive")
	}
	if c.WS.MaxMessagesPerSecond < 0 {
		return errors.New("ws.max_messages_per_second must not be negative")
	}
	return nil
}

// NewLogger builds the process logger from the configured level and format.
func (c Config) NewLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if c.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
