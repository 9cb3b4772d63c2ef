package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete loader configuration
type Config struct {
	// Source configuration
	PrimaryURL   string `yaml:"primary_url"`
	SecondaryURL string `yaml:"secondary_url"`
	TimeoutMs    int    `yaml:"timeout_ms"` // Primary budget before the secondary load starts

	// Insertion target
	Selector string `yaml:"selector"`

	// Analytics (best-effort, optional)
	AnalyticsEndpoint string  `yaml:"analytics_endpoint,omitempty"`
	AnalyticsRPS      float64 `yaml:"analytics_rps,omitempty"`
	AnalyticsBurst    int     `yaml:"analytics_burst,omitempty"`

	// Attempt journal (optional)
	JournalPath string `yaml:"journal_path,omitempty"`

	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLogs bool   `yaml:"json_logs"`
}

// Default returns the configuration defaults applied before file values
func Default() *Config {
	return &Config{
		TimeoutMs:      5000,
		Selector:       "#site-nav",
		AnalyticsRPS:   1.0,
		AnalyticsBurst: 5,
		LogLevel:       "info",
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.PrimaryURL == "" {
		return fmt.Errorf("primary_url is required")
	}
	if c.SecondaryURL == "" {
		return fmt.Errorf("secondary_url is required")
	}
	for _, raw := range []string{c.PrimaryURL, c.SecondaryURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("source URL %q must be http(s)", raw)
		}
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", c.TimeoutMs)
	}
	if c.Selector == "" {
		return fmt.Errorf("selector is required")
	}
	if c.AnalyticsRPS < 0 {
		return fmt.Errorf("analytics_rps must not be negative")
	}
	return nil
}

// Timeout returns the primary source budget as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
