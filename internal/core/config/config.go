// Package config provides configuration management for scorekeeper commands.
package config

// AnalyzerConfig holds configuration for batch log analysis.
type AnalyzerConfig struct {
	MetricsPath    string  // metric definition YAML
	AssertionsPath string  // assertion definition YAML, optional
	LogFile        string  // jsonl interaction log
	LookbackHours  float64 // analysis window; 0 = whole file
	BatchLimit     int     // max records per run
}

// DefaultAnalyzerConfig returns configuration with default values.
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		MetricsPath:   "evaluation/metrics_definition.yaml",
		LogFile:       "logs/production_log.jsonl",
		LookbackHours: 24,
		BatchLimit:    10000,
	}
}
