// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Events      EventsConfig
	Log         LogConfig
	CatalogPath string // empty means the embedded catalog
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// StoreConfig selects where learner state is kept.
type StoreConfig struct {
	Driver    string // memory, sqlite, postgres or redis
	Path      string // sqlite file
	Namespace string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
type CacheConfig struct {
	URL string
}

// EventsConfig controls learning analytics events.
type EventsConfig struct {
	Enabled bool // requires LEARN_DATABASE_URL
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Store: StoreConfig{
			Driver:    strings.ToLower(envStr("LEARN_STORE_DRIVER", "sqlite")),
			Path:      envStr("LEARN_STORE_PATH", "./data/testlab.db"),
			Namespace: envStr("LEARN_STORE_NAMESPACE", "default"),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", "redis://localhost:6379"),
		},
		Events: EventsConfig{
			Enabled: envBool("LEARN_EVENTS_ENABLED", false),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envStr("LEARN_LOG_LEVEL", "info")),
			Format: strings.ToLower(envStr("LEARN_LOG_FORMAT", "json")),
		},
		CatalogPath: envStr("LEARN_CATALOG_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that the selected backends have what they need.
// maxDatabaseConns caps the PostgreSQL pool size.
const maxDatabaseConns = 1000

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("LEARN_STORE_PATH is required for the sqlite store")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("LEARN_DATABASE_URL is required for the postgres store")
		}
	case "redis":
		if c.Cache.URL == "" {
			return fmt.Errorf("LEARN_CACHE_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("LEARN_STORE_DRIVER must be one of memory, sqlite, postgres, redis, got %q", c.Store.Driver)
	}

	if c.Store.Namespace == "" {
		return fmt.Errorf("LEARN_STORE_NAMESPACE must not be empty")
	}

	if c.Events.Enabled && c.Database.URL == "" {
		return fmt.Errorf("LEARN_DATABASE_URL is required when LEARN_EVENTS_ENABLED is set")
	}

	if c.Database.MaxConns < 1 || c.Database.MaxConns > maxDatabaseConns {
		return fmt.Errorf("LEARN_DATABASE_MAX_CONNS must be between 1 and %d, got %d", maxDatabaseConns, c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 {
		return fmt.Errorf("LEARN_DATABASE_MIN_CONNS must not be negative, got %d", c.Database.MinConns)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("LEARN_DATABASE_MIN_CONNS (%d) exceeds LEARN_DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LEARN_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
