package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"order-gateway-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env       string          `yaml:"env"`
	Venue     VenueConfig     `yaml:"venue"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Limiter   LimiterConfig   `yaml:"limiter"`
	Logging   logger.Config   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type VenueConfig struct {
	BaseURL   string `yaml:"baseURL"`
	StreamURL string `yaml:"streamURL"` // empty disables the execution stream
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
}

type ReconcileConfig struct {
	IntervalSeconds    int `yaml:"intervalSeconds"`
	CallTimeoutSeconds int `yaml:"callTimeoutSeconds"`
	MaxBackoffSeconds  int `yaml:"maxBackoffSeconds"`
}

type LimiterConfig struct {
	Rate  float64 `yaml:"rate"`  // requests per second
	Burst int     `yaml:"burst"` // bucket size
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the metrics endpoint
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg, err := parse(path)
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

// LoadWithEnvOverrides loads config, overrides sensitive fields from env
// vars if present, then validates. Credentials may live solely in the
// environment.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := parse(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("OG_VENUE_API_KEY"); v != "" {
		cfg.Venue.APIKey = v
	}
	if v := os.Getenv("OG_VENUE_API_SECRET"); v != "" {
		cfg.Venue.APISecret = v
	}
	return cfg, Validate(cfg)
}

func parse(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields every run needs. Venue connectivity is
// validated separately so paper runs do not require REST credentials.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Reconcile.IntervalSeconds < 0 {
		return errors.New("reconcile.intervalSeconds must be >= 0")
	}
	if cfg.Reconcile.CallTimeoutSeconds < 0 {
		return errors.New("reconcile.callTimeoutSeconds must be >= 0")
	}
	if cfg.Reconcile.MaxBackoffSeconds < 0 {
		return errors.New("reconcile.maxBackoffSeconds must be >= 0")
	}
	if cfg.Limiter.Rate < 0 {
		return errors.New("limiter.rate must be >= 0")
	}
	if cfg.Limiter.Burst < 0 {
		return errors.New("limiter.burst must be >= 0")
	}
	return nil
}

// ValidateVenue ensures everything the REST venue client needs is present.
// Called only when the REST client is actually constructed.
func ValidateVenue(cfg AppConfig) error {
	if cfg.Venue.BaseURL == "" {
		return errors.New("venue.baseURL is required")
	}
	if cfg.Venue.APIKey == "" || cfg.Venue.APISecret == "" {
		return errors.New("venue.apiKey/apiSecret is required (or env overrides)")
	}
	return nil
}
