// Package config loads and validates the tap configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the tap configuration supplied by the operator.
type Config struct {
	// APIKey is the SendGrid bearer credential.
	APIKey string `json:"api_key" yaml:"api_key" validate:"required"`

	// StartDate is the ISO date extraction begins from when a stream has
	// no bookmark yet.
	StartDate string `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`

	// UserAgent optionally identifies the tap to the API.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`

	// RequestTimeoutSeconds bounds each HTTP request. Zero selects the
	// client default.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" yaml:"request_timeout_seconds" validate:"gte=0"`
}

// Load reads a config file, JSON or YAML by extension, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// StartTime returns the configured start date as a UTC instant.
func (c *Config) StartTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start_date: %w", err)
	}
	return t.UTC(), nil
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
