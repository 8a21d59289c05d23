package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load builds the run configuration. When path is empty, DefaultFile is used
// if it exists; otherwise the lab defaults apply unchanged. Environment
// overrides are applied after the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	cfg.PollInterval = envDuration("LABCTL_POLL_INTERVAL", cfg.PollInterval)
	cfg.Smoke.Timeout = envDuration("LABCTL_SMOKE_TIMEOUT", cfg.Smoke.Timeout)

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile reads and parses the configuration from a YAML file.
func loadFile(path string) (*Config, error) {
	// #nosec G304 - path is chosen by the operator on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// envDuration reads a duration from an environment variable, returning
// fallback when the variable is unset or unparseable.
func envDuration(name string, fallback time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return parsed
}
