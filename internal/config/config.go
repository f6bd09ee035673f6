// Package config loads ledgersync configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/kuberan/ledgersync/internal/logger"
)

// Config holds application configuration.
type Config struct {
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Remote API
	ServerURL         string        `env:"LEDGERSYNC_SERVER_URL,notEmpty"`
	TokenURL          string        `env:"LEDGERSYNC_TOKEN_URL,notEmpty"`
	ClientID          string        `env:"LEDGERSYNC_CLIENT_ID,notEmpty"`
	RequestTimeout    time.Duration `env:"LEDGERSYNC_REQUEST_TIMEOUT" envDefault:"30s"`
	TokenLeeway       time.Duration `env:"LEDGERSYNC_TOKEN_LEEWAY" envDefault:"30s"`
	RequestsPerSecond float64       `env:"LEDGERSYNC_REQUESTS_PER_SECOND" envDefault:"0"`

	// Local storage
	DataDir        string `env:"LEDGERSYNC_DATA_DIR" envDefault:"./data"`
	KeystoreSecret string `env:"LEDGERSYNC_KEYSTORE_SECRET,notEmpty,unset"`

	// Scheduling
	RefreshInterval    time.Duration `env:"LEDGERSYNC_REFRESH_INTERVAL" envDefault:"2m"`
	SecondaryDelay     time.Duration `env:"LEDGERSYNC_SECONDARY_DELAY" envDefault:"3s"`
	SystemDelay        time.Duration `env:"LEDGERSYNC_SYSTEM_DELAY" envDefault:"20s"`
	ForegroundThrottle time.Duration `env:"LEDGERSYNC_FOREGROUND_THROTTLE" envDefault:"2m"`

	// Daemon. An empty HTTPAddr disables the HTTP surface.
	HTTPAddr      string `env:"LEDGERSYNC_HTTP_ADDR"`
	ControlAPIKey string `env:"LEDGERSYNC_CONTROL_API_KEY,unset"`
}

// Load reads an optional .env file, parses the environment and validates the result.
func Load() (*Config, error) {
	// A missing .env is fine; variables may come from the real environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that struct tags cannot express.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"LEDGERSYNC_SERVER_URL": c.ServerURL,
		"LEDGERSYNC_TOKEN_URL":  c.TokenURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q: must be an absolute URL", name, raw)
		}
	}
	for name, d := range map[string]time.Duration{
		"LEDGERSYNC_REQUEST_TIMEOUT":  c.RequestTimeout,
		"LEDGERSYNC_REFRESH_INTERVAL": c.RefreshInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if c.SecondaryDelay < 0 || c.SystemDelay < 0 || c.TokenLeeway < 0 {
		return fmt.Errorf("delays and leeway must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("LEDGERSYNC_REQUESTS_PER_SECOND must not be negative, got %v", c.RequestsPerSecond)
	}
	if len(c.KeystoreSecret) < 16 {
		return fmt.Errorf("LEDGERSYNC_KEYSTORE_SECRET must be at least 16 characters")
	}
	return nil
}

// DatabasePath is the sqlite cache file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// PreferencesDir is the badger directory inside DataDir.
func (c *Config) PreferencesDir() string {
	return filepath.Join(c.DataDir, "prefs")
}
