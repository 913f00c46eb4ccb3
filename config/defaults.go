package config

import "time"

// DefaultConfig returns the built-in defaults for every section.
func DefaultConfig() *Config {
	return &Config{
		Log:       DefaultLogConfig(),
		Registry:  DefaultRegistryConfig(),
		Redis:     DefaultRedisConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Discovery: DefaultDiscoveryConfig(),
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultRegistryConfig returns the default registry client configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		BaseURL:    "https://registry.chat39.com",
		Timeout:    30 * time.Second,
		RetryCount: 3,
		RetryDelay: 1 * time.Second,
		RateLimit:  20,
		RateBurst:  40,
		Insecure:   false,
	}
}

// DefaultRedisConfig returns the default Redis configuration. Redis is
// disabled by default; discovery works with the in-memory store alone.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		DB:           0,
		TLS:          false,
		DefaultTTL:   5 * time.Minute,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentscout",
		SampleRate:   0.1,
	}
}

// DefaultDiscoveryConfig returns the default ranking configuration.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Limit:    5,
		MinScore: 0.3,
		Weights:  DefaultWeightsConfig(),
	}
}

// DefaultWeightsConfig returns the standard scoring weight partition.
func DefaultWeightsConfig() WeightsConfig {
	return WeightsConfig{
		Capability:   0.35,
		Domain:       0.25,
		Keyword:      0.20,
		Performance:  0.10,
		Availability: 0.05,
		Load:         0.05,
	}
}
