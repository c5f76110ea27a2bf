package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applySerialDefaults(&cfg.Serial)
	applySessionDefaults(&cfg.Session)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applySerialDefaults sets serial transport defaults.
// Port has no default - it must be supplied by the user via flag or config.
func applySerialDefaults(cfg *SerialConfig) {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.ResetStrategy == "" {
		cfg.ResetStrategy = "classic"
	}

	applyTimeoutsDefaults(&cfg.Timeouts)
}

// applyTimeoutsDefaults mirrors session.DefaultTimeouts, keeping the config
// layer's notion of "unset" (zero duration) distinct from the session
// package's own zero-value fallback so that config.yaml documents the
// effective values.
func applyTimeoutsDefaults(cfg *TimeoutsConfig) {
	if cfg.Sync == 0 {
		cfg.Sync = 500 * time.Millisecond
	}
	if cfg.Command == 0 {
		cfg.Command = 2 * time.Second
	}
	if cfg.FlashData == 0 {
		cfg.FlashData = 5 * time.Second
	}
	if cfg.MemData == 0 {
		cfg.MemData = 1 * time.Second
	}
	if cfg.Handshake == 0 {
		cfg.Handshake = 2 * time.Second
	}
}

// applySessionDefaults sets session controller defaults.
func applySessionDefaults(cfg *SessionConfig) {
	if cfg.ProgressLogInterval == 0 {
		cfg.ProgressLogInterval = 500 * time.Millisecond
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics).
	// Port defaults to 9090 if metrics are enabled.
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Running the CLI with no config file at all
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
