// Package config loads server configuration from the environment, with an
// optional TOML file layered on top for desktop installs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Fetch     FetchConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" toml:"port" default:"7070"`
	Host string `envconfig:"HOST" toml:"host" default:"127.0.0.1"`
}

// AppConfig holds reader application configuration.
type AppConfig struct {
	// Name scopes the XDG directories the native backend writes under.
	Name string `envconfig:"APP_NAME" toml:"name" default:"quillreader"`
	// Backend selects the storage backend: "auto", "native" or "web".
	Backend string `envconfig:"STORAGE_BACKEND" toml:"backend" default:"auto"`
	// WebStorePath overrides where the web backend keeps its emulated
	// store; empty means the data root.
	WebStorePath string `envconfig:"WEB_STORE_PATH" toml:"web_store_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level" default:"info"`
	Development bool   `envconfig:"LOG_DEV" toml:"development" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled" default:"true"`
}

// FetchConfig holds remote metadata/cover fetch configuration.
type FetchConfig struct {
	Enabled        bool   `envconfig:"FETCH_ENABLED" toml:"enabled" default:"true"`
	TimeoutSeconds int    `envconfig:"FETCH_TIMEOUT" toml:"timeout_seconds" default:"15"`
	UserAgent      string `envconfig:"FETCH_USER_AGENT" toml:"user_agent" default:"quillreader/1.0"`
}

// Load builds configuration from environment variables (with defaults),
// then overlays the TOML file when path is non-empty and the file exists.
// The file only touches keys it actually declares.
func Load(filePath string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if filePath != "" {
		if err := loadFile(filePath, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration or falls back to defaults.
func LoadOrDefault(filePath string) *Config {
	cfg, err := Load(filePath)
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "7070", Host: "127.0.0.1"},
		App:    AppConfig{Name: "quillreader", Backend: "auto"},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Fetch: FetchConfig{
			Enabled:        true,
			TimeoutSeconds: 15,
			UserAgent:      "quillreader/1.0",
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
