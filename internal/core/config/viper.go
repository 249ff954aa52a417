package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*AnalyzerConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultAnalyzerConfig
	v.SetDefault("analyzer.metrics_path", "evaluation/metrics_definition.yaml")
	v.SetDefault("analyzer.assertions_path", "")
	v.SetDefault("analyzer.log_file", "logs/production_log.jsonl")
	v.SetDefault("analyzer.lookback_hours", 24.0)
	v.SetDefault("analyzer.batch_limit", 10000)

	// Bind environment variables with SK_ prefix
	v.SetEnvPrefix("SK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &AnalyzerConfig{
		MetricsPath:    v.GetString("analyzer.metrics_path"),
		AssertionsPath: v.GetString("analyzer.assertions_path"),
		LogFile:        v.GetString("analyzer.log_file"),
		LookbackHours:  v.GetFloat64("analyzer.lookback_hours"),
		BatchLimit:     v.GetInt("analyzer.batch_limit"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks required paths and non-negative window/limit values.
func validateConfig(cfg *AnalyzerConfig) error {
	if cfg.MetricsPath == "" {
		return fmt.Errorf("metrics_path must not be empty")
	}
	if cfg.LogFile == "" {
		return fmt.Errorf("log_file must not be empty")
	}
	if cfg.LookbackHours < 0 {
		return fmt.Errorf("lookback_hours must not be negative, got %v", cfg.LookbackHours)
	}
	if cfg.BatchLimit <= 0 {
		return fmt.Errorf("batch_limit must be positive, got %d", cfg.BatchLimit)
	}
	return nil
}
