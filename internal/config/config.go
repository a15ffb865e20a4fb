// Package config loads catalog-scroll settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/catalog-scroll/pkg/catalog"
	"github.com/Sternrassler/catalog-scroll/pkg/logging"
)

// Default configuration values.
const (
	DefaultUserAgent = "catalog-scroll/0.1.0"
	DefaultTimeout   = 30 * time.Second
	DefaultLogFile   = "catalog-scroll.log"
)

// Environment variable names.
const (
	EnvBaseURL     = "CATALOG_BASE_URL"
	EnvUserAgent   = "CATALOG_USER_AGENT"
	EnvTimeout     = "CATALOG_TIMEOUT"
	EnvRedisURL    = "REDIS_URL"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogFile     = "LOG_FILE"
	EnvLogPretty   = "LOG_PRETTY"
	EnvMetricsAddr = "METRICS_ADDR"
)

// Validation errors.
var (
	ErrInvalidBaseURL = errors.New("catalog base url must be an absolute http(s) url")
	ErrEmptyUserAgent = errors.New("user agent must not be empty")
	ErrInvalidTimeout = errors.New("timeout must be positive")
	ErrInvalidLogFile = errors.New("log file must be set")
)

// Config holds the application configuration.
type Config struct {
	// Catalog settings.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// RedisURL enables the response cache and rate limit tracking
	// (e.g. redis://localhost:6379/0). Empty disables both.
	RedisURL string

	// Logging settings. Logs always go to LogFile because the gallery owns
	// the terminal.
	LogLevel  logging.LogLevel
	LogFile   string
	LogPretty bool

	// MetricsAddr is the listen address of the ops server. Empty disables it.
	MetricsAddr string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:   catalog.DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		LogLevel:  logging.LevelInfo,
		LogFile:   DefaultLogFile,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	if val := os.Getenv(EnvBaseURL); val != "" {
		c.BaseURL = val
	}

	if val := os.Getenv(EnvUserAgent); val != "" {
		c.UserAgent = val
	}

	if val := os.Getenv(EnvTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTimeout, err)
		}
		c.Timeout = timeout
	}

	c.RedisURL = os.Getenv(EnvRedisURL)

	if val := os.Getenv(EnvLogLevel); val != "" {
		level, err := logging.ParseLevel(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvLogLevel, err)
		}
		c.LogLevel = level
	}

	if val := os.Getenv(EnvLogFile); val != "" {
		c.LogFile = val
	}

	if val := os.Getenv(EnvLogPretty); val != "" {
		pretty, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvLogPretty, err)
		}
		c.LogPretty = pretty
	}

	c.MetricsAddr = os.Getenv(EnvMetricsAddr)

	return nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}

	if c.UserAgent == "" {
		return ErrEmptyUserAgent
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.LogFile == "" {
		return ErrInvalidLogFile
	}

	return nil
}

// CatalogConfig returns the catalog client settings. The Redis client is
// attached by the caller.
func (c *Config) CatalogConfig() catalog.Config {
	cfg := catalog.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.UserAgent = c.UserAgent
	cfg.Timeout = c.Timeout
	return cfg
}
