package config

// Config is the root configuration for the cache service process.
type Config struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`

	// Server configures the operational HTTP endpoint.
	Server ServerConfig `yaml:"server" json:"server"`

	// Cache configures the cache tiers, segments and maintenance loops.
	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is the log output format: json or console.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Output is the log destination: stdout or stderr.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns span export on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (host:port).
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`

	// SamplingRate is the trace sampling ratio (0.0 to 1.0).
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
}

// ServerConfig configures the operational HTTP endpoint serving health,
// stats and Prometheus metrics.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":9090".
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Server: ServerConfig{Addr: ":9090"},
		Cache:  *DefaultCacheConfig(),
	}
}
