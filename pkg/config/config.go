// Package config provides configuration loading and validation for the oracle bot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file, expanding environment variables.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML, so secrets like the signing key
	// can be referenced as ${ORACLE_PRIVATE_KEY}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Interval.ToDuration() == 0 {
		cfg.Interval = Duration(60 * time.Second)
	}
	if cfg.FeedTimeout.ToDuration() == 0 {
		cfg.FeedTimeout = Duration(10 * time.Second)
	}

	// Aggregation defaults
	if cfg.Aggregation.Quorum == 0 {
		cfg.Aggregation.Quorum = 2
	}
	if cfg.Aggregation.Staleness.ToDuration() == 0 {
		cfg.Aggregation.Staleness = Duration(30 * time.Second)
	}
	if cfg.Aggregation.SpreadTolerance == 0 {
		cfg.Aggregation.SpreadTolerance = 0.05
	}

	// Volatility defaults
	if cfg.Volatility.Window == 0 {
		cfg.Volatility.Window = 288 // one day of 5-minute ticks
	}

	// Chain defaults
	if cfg.Chain.PriceDecimals == 0 {
		cfg.Chain.PriceDecimals = 8
	}
	if cfg.Chain.GasLimit == 0 {
		cfg.Chain.GasLimit = 200000
	}
	if cfg.Chain.MaxAttempts == 0 {
		cfg.Chain.MaxAttempts = 3
	}
	if cfg.Chain.ConfirmTimeout.ToDuration() == 0 {
		cfg.Chain.ConfirmTimeout = Duration(60 * time.Second)
	}

	// Asset defaults
	for i := range cfg.Assets {
		if cfg.Assets[i].PriceType == "" {
			cfg.Assets[i].PriceType = "spot"
		}
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
