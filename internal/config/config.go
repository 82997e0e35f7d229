// Package config loads storefront settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all storefront configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP storefront.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	MetricsEnabled  bool   `yaml:"metrics_enabled"`
}

// CatalogConfig selects where schema documents come from. Exactly one of
// URL, Dir and DB is used, in that order of preference.
type CatalogConfig struct {
	URL          string `yaml:"url"`
	Dir          string `yaml:"dir"`
	DB           string `yaml:"db"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

// RenderConfig tunes composition.
type RenderConfig struct {
	Dev      bool   `yaml:"dev"` // visible diagnostics for unknown blocks
	Locale   string `yaml:"locale"`
	FontPath string `yaml:"font_path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "10s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
			MetricsEnabled:  true,
		},
		Catalog: CatalogConfig{
			Dir:          "catalog",
			FetchTimeout: "5s",
		},
		Render: RenderConfig{
			Locale: "en",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies STOREFRONT_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STOREFRONT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("STOREFRONT_CATALOG_URL"); v != "" {
		c.Catalog.URL = v
	}
	if v := os.Getenv("STOREFRONT_CATALOG_DIR"); v != "" {
		c.Catalog.Dir = v
	}
	if v := os.Getenv("STOREFRONT_CATALOG_DB"); v != "" {
		c.Catalog.DB = v
	}
	if v := os.Getenv("STOREFRONT_DEV"); v != "" {
		if dev, err := strconv.ParseBool(v); err == nil {
			c.Render.Dev = dev
		}
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address not configured")
	}
	if c.Catalog.URL == "" && c.Catalog.Dir == "" && c.Catalog.DB == "" {
		return fmt.Errorf("no catalog configured (set catalog.url, catalog.dir or catalog.db)")
	}
	if !slices.Contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Logging.Format)
	}
	return nil
}

// CatalogKind reports which catalog backend is configured: "http", "dir" or
// "sqlite".
func (c *Config) CatalogKind() string {
	switch {
	case c.Catalog.URL != "":
		return "http"
	case c.Catalog.Dir != "":
		return "dir"
	default:
		return "sqlite"
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetReadTimeout returns the server read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 10*time.Second)
}

// GetWriteTimeout returns the server write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 30*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown budget.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GetFetchTimeout returns the per-request catalog timeout.
func (c *Config) GetFetchTimeout() time.Duration {
	return parseDuration(c.Catalog.FetchTimeout, 5*time.Second)
}
