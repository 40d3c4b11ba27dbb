// Package config provides configuration management for the signal-lab tools.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "SIGNAL_LAB"
	defaultConfigPath = "config/config.yaml"
)

// DefaultPath returns the configuration path from SIGNAL_LAB_CONFIG_PATH or the default location
func DefaultPath() string {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return defaultConfigPath
}

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
// and fails when the file does not exist.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := readExpanded(v, data); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath()
	}

	v := newViper()

	if data, err := os.ReadFile(configPath); err == nil {
		if err := readExpanded(v, data); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix(envPrefix)

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "signal-lab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("backtest.start_date", "2025-06-23")
	v.SetDefault("backtest.end_date", "2025-12-31")
	v.SetDefault("backtest.initial_cash", 30000.0)
	v.SetDefault("backtest.data_path", "./data")
	v.SetDefault("backtest.output_dir", "backtest_results")
	v.SetDefault("backtest.strategy_dir", ".")
	v.SetDefault("backtest.workers", 1)
	v.SetDefault("backtest.collision_policy", "last_write_wins")
	v.SetDefault("backtest.default_cost_per_unit", 0.5)
	v.SetDefault("backtest.default_unit_value", 100000.0)
	v.SetDefault("backtest.default_lot_size", 0.01)
	v.SetDefault("backtest.cache_ttl_seconds", 600)

	v.SetDefault("reconcile.config_dir", ".")
	v.SetDefault("reconcile.output_dir", "real_results")
	v.SetDefault("reconcile.classification_mode", "comment_tag")
	v.SetDefault("reconcile.entry_marker", "patt")
	v.SetDefault("reconcile.exit_selection", "earliest")
	v.SetDefault("reconcile.default_cost_per_lot", 0.5)
	v.SetDefault("reconcile.default_strategy_id", 2)
	v.SetDefault("reconcile.default_timeframe", "t5")
	v.SetDefault("reconcile.default_start_date", "2025-06-01")

	v.SetDefault("broker.venue", "rest")
	v.SetDefault("broker.timeout_seconds", 30)
	v.SetDefault("broker.retry_attempts", 3)
	v.SetDefault("broker.requests_per_second", 5.0)
	v.SetDefault("broker.burst", 5)

	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 5)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}

// readExpanded expands environment variables (${VAR} syntax) before parsing
func readExpanded(v *viper.Viper, data []byte) error {
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.normalizeSymbols()
	return cfg, nil
}

// BacktestRange parses the configured backtest date range
func (c *Config) BacktestRange() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, c.Backtest.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest start_date: %w", err)
	}
	end, err := time.Parse(dateLayout, c.Backtest.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest end_date: %w", err)
	}
	return start, end, nil
}
