package config

import "time"

// Config is the complete application configuration, merged from three
// layers: embedded defaults, an optional user config file, and
// environment variables / runtime overrides.
type Config struct {
	Server     ServerConfig   `mapstructure:"server"`
	SAM        UpstreamConfig `mapstructure:"sam"`
	Spending   UpstreamConfig `mapstructure:"spending"`
	Aggregator UpstreamConfig `mapstructure:"aggregator"`
	Gateway    GatewayConfig  `mapstructure:"gateway"`
	Logging    LoggingConfig  `mapstructure:"logging"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
	Health     HealthConfig   `mapstructure:"health"`
	Debug      DebugConfig    `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// UpstreamConfig describes one upstream API family. Interval is the
// minimum spacing between consecutive requests to that family; APIKey
// is empty for families that need none.
type UpstreamConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Interval time.Duration `mapstructure:"interval"`
}

// GatewayConfig contains shared outbound HTTP settings.
type GatewayConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration.
// Profile selects the logging complexity level: SIMPLE for CLI use,
// STRUCTURED for the API server (structured sinks, correlation IDs).
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
