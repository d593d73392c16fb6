// Package config loads frontend settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all blogfront settings.
type Config struct {
	// Backend root, e.g. http://localhost:5000.
	APIBaseURL string `yaml:"api_base_url" envconfig:"API_BASE_URL"`
	// Backend API root. Derived as APIBaseURL + "/api" when empty.
	APIURL string `yaml:"api_url" envconfig:"API_URL"`
	// Public path prefix the default post image is served under.
	AssetsPath string `yaml:"assets_path" envconfig:"ASSETS_PATH"`

	ListenAddr     string        `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`

	NotificationLifetime time.Duration `yaml:"notification_lifetime" envconfig:"NOTIFICATION_LIFETIME"`

	LogLevel       string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogDevelopment bool   `yaml:"log_development" envconfig:"LOG_DEVELOPMENT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:           "http://localhost:5000",
		AssetsPath:           "/static/assets/images/",
		ListenAddr:           ":3000",
		RequestTimeout:       10 * time.Second,
		NotificationLifetime: 6 * time.Second,
		LogLevel:             "info",
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides sets every field whose variable is present. Fields with
// no variable set keep their current value.
func (c *Config) applyEnvOverrides() error {
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.APIURL == "" {
		c.APIURL = c.APIBaseURL + "/api"
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if !strings.HasSuffix(c.AssetsPath, "/") {
		c.AssetsPath += "/"
	}
}

// Validate reports settings the frontend cannot run with.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"api_base_url": c.APIBaseURL, "api_url": c.APIURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q", name, raw)
		}
	}
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.NotificationLifetime <= 0 {
		return errors.New("notification_lifetime must be positive")
	}
	return nil
}
