package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-scroll/pkg/catalog"
	"github.com/Sternrassler/catalog-scroll/pkg/logging"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvBaseURL, EnvUserAgent, EnvTimeout, EnvRedisURL,
		EnvLogLevel, EnvLogFile, EnvLogPretty, EnvMetricsAddr,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BaseURL != catalog.DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, catalog.DefaultBaseURL)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %s", cfg.Timeout)
	}
	if cfg.RedisURL != "" || cfg.MetricsAddr != "" {
		t.Errorf("optional settings should be empty: redis %q, metrics %q", cfg.RedisURL, cfg.MetricsAddr)
	}
	if cfg.LogLevel != logging.LevelInfo || cfg.LogFile != DefaultLogFile || cfg.LogPretty {
		t.Errorf("logging = %q %q %v", cfg.LogLevel, cfg.LogFile, cfg.LogPretty)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBaseURL, "http://localhost:8081")
	t.Setenv(EnvUserAgent, "catalog-scroll-test/1.0")
	t.Setenv(EnvTimeout, "5s")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/1")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFile, "/tmp/scroll.log")
	t.Setenv(EnvLogPretty, "true")
	t.Setenv(EnvMetricsAddr, ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Config{
		BaseURL:     "http://localhost:8081",
		UserAgent:   "catalog-scroll-test/1.0",
		Timeout:     5 * time.Second,
		RedisURL:    "redis://localhost:6379/1",
		LogLevel:    logging.LevelDebug,
		LogFile:     "/tmp/scroll.log",
		LogPretty:   true,
		MetricsAddr: ":9090",
	}
	if *cfg != want {
		t.Errorf("Load() = %+v, want %+v", *cfg, want)
	}

	cc := cfg.CatalogConfig()
	if cc.BaseURL != want.BaseURL || cc.UserAgent != want.UserAgent || cc.Timeout != want.Timeout {
		t.Errorf("CatalogConfig() = %+v", cc)
	}
	if cc.Redis != nil {
		t.Error("CatalogConfig() should not attach a Redis client")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
		wantMsg string
	}{
		{"bad timeout", EnvTimeout, "soon", nil, EnvTimeout},
		{"zero timeout", EnvTimeout, "0s", ErrInvalidTimeout, ""},
		{"bad log level", EnvLogLevel, "loud", nil, EnvLogLevel},
		{"bad pretty flag", EnvLogPretty, "sometimes", nil, EnvLogPretty},
		{"relative url", EnvBaseURL, "/products", ErrInvalidBaseURL, ""},
		{"ftp url", EnvBaseURL, "ftp://dummyjson.com", ErrInvalidBaseURL, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		BaseURL:   "https://dummyjson.com",
		UserAgent: DefaultUserAgent,
		Timeout:   time.Second,
		LogFile:   DefaultLogFile,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	noUA := valid
	noUA.UserAgent = ""
	if err := noUA.Validate(); !errors.Is(err, ErrEmptyUserAgent) {
		t.Errorf("Validate() = %v, want ErrEmptyUserAgent", err)
	}

	noLog := valid
	noLog.LogFile = ""
	if err := noLog.Validate(); !errors.Is(err, ErrInvalidLogFile) {
		t.Errorf("Validate() = %v, want ErrInvalidLogFile", err)
	}
}
