package config

import (
	"strings"
	"time"

	"github.com/go-cometd/cometd/pkg/api"
	"github.com/go-cometd/cometd/pkg/broker"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyServerDefaults(&cfg.Server)
	applyBayeuxDefaults(&cfg.Bayeux)
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

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyServerDefaults sets Bayeux HTTP server defaults.
func applyServerDefaults(cfg *api.Config) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	// WriteTimeout must exceed the long-poll timeout or parked connects
	// are cut off mid-wait.
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// applyBayeuxDefaults sets broker protocol defaults.
func applyBayeuxDefaults(cfg *BayeuxConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = broker.DefaultTimeout
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = broker.DefaultMaxInterval
	}
	if cfg.ClientChannelCapacity == 0 {
		cfg.ClientChannelCapacity = broker.DefaultChannelCapacity
	}
	if cfg.SubscriptionChannelCapacity == 0 {
		cfg.SubscriptionChannelCapacity = broker.DefaultChannelCapacity
	}
	if cfg.EventsChannelCapacity == 0 {
		cfg.EventsChannelCapacity = broker.DefaultChannelCapacity
	}
	if cfg.ClientStorageCapacity == 0 {
		cfg.ClientStorageCapacity = broker.DefaultStorageCapacity
	}
	if cfg.SubscriptionStorageCapacity == 0 {
		cfg.SubscriptionStorageCapacity = broker.DefaultStorageCapacity
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
