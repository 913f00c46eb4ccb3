package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete agentscout configuration.
type Config struct {
	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Registry configures the agent registry HTTP client.
	Registry RegistryConfig `yaml:"registry" env:"REGISTRY"`

	// Redis configures the optional performance snapshot backend.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Discovery configures ranking defaults.
	Discovery DiscoveryConfig `yaml:"discovery" env:"DISCOVERY"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`

	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`

	// OutputPaths lists zap output sinks.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`

	// EnableCaller annotates entries with the call site.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`

	// EnableStacktrace attaches stack traces to error entries.
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// RegistryConfig mirrors the registry client settings.
type RegistryConfig struct {
	// BaseURL is the registry endpoint. Empty falls back to the client's
	// built-in default.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// RetryCount is the number of retries after the first attempt.
	RetryCount int `yaml:"retry_count" env:"RETRY_COUNT"`

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`

	// RateLimit caps outgoing requests per second. Zero disables the cap.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`

	// RateBurst is the rate limiter burst size.
	RateBurst int `yaml:"rate_burst" env:"RATE_BURST"`

	// Insecure skips TLS certificate verification, for registries running
	// self-signed certificates in development.
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// RedisConfig configures the Redis-backed performance store.
type RedisConfig struct {
	// Enabled wires a Redis performance store when true; otherwise the
	// in-memory store is used alone.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Addr is the Redis host:port.
	Addr string `yaml:"addr" env:"ADDR"`

	// Password authenticates the connection when non-empty.
	Password string `yaml:"password" env:"PASSWORD"`

	// DB selects the Redis logical database.
	DB int `yaml:"db" env:"DB"`

	// TLS dials Redis over TLS.
	TLS bool `yaml:"tls" env:"TLS"`

	// DefaultTTL is the expiry applied to performance keys.
	DefaultTTL time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`

	// PoolSize is the maximum number of pooled connections.
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`

	// MinIdleConns keeps that many connections warm in the pool.
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// TelemetryConfig controls OpenTelemetry initialization.
type TelemetryConfig struct {
	// Enabled turns the OTel SDK on. When false no exporters are created.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// OTLPEndpoint is the OTLP gRPC collector address.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`

	// ServiceName names this service in exported telemetry.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`

	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// DiscoveryConfig carries the ranking defaults applied when a request
// leaves them unset.
type DiscoveryConfig struct {
	// Limit is the default maximum number of recommendations.
	Limit int `yaml:"limit" env:"LIMIT"`

	// MinScore is the default score threshold in [0, 1].
	MinScore float64 `yaml:"min_score" env:"MIN_SCORE"`

	// Weights partitions the overall score across the scoring factors.
	Weights WeightsConfig `yaml:"weights" env:"WEIGHTS"`
}

// WeightsConfig mirrors the scoring weight partition.
type WeightsConfig struct {
	// Capability weighs required-capability coverage.
	Capability float64 `yaml:"capability" env:"CAPABILITY"`

	// Domain weighs domain expertise alignment.
	Domain float64 `yaml:"domain" env:"DOMAIN"`

	// Keyword weighs keyword and description relevance.
	Keyword float64 `yaml:"keyword" env:"KEYWORD"`

	// Performance weighs the historical performance snapshot.
	Performance float64 `yaml:"performance" env:"PERFORMANCE"`

	// Availability weighs advertised status and last-seen recency.
	Availability float64 `yaml:"availability" env:"AVAILABILITY"`

	// Load weighs the inverse of current load.
	Load float64 `yaml:"load" env:"LOAD"`
}

// Loader builds a Config from defaults, an optional YAML file and
// environment overrides, in that order of precedence.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader returns a loader with the AGENTSCOUT environment prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "AGENTSCOUT",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file to load. A missing file is not an
// error; defaults apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks the struct recursively, reading <prefix>_<tag>
// for every field carrying an env tag.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration parses as a duration string, not an integer.
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma-separated values fill string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the configuration from path, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads the configuration from defaults and environment
// variables only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate checks the configuration for values no component can accept.
func (c *Config) Validate() error {
	var errs []string

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	if c.Registry.Timeout < 0 {
		errs = append(errs, "registry timeout must not be negative")
	}
	if c.Registry.RetryCount < 0 {
		errs = append(errs, "registry retry_count must not be negative")
	}
	if c.Registry.RateLimit < 0 {
		errs = append(errs, "registry rate_limit must not be negative")
	}

	if c.Redis.DB < 0 {
		errs = append(errs, "redis db must not be negative")
	}
	if c.Redis.PoolSize < 0 {
		errs = append(errs, "redis pool_size must not be negative")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry otlp_endpoint required when enabled")
	}

	if c.Discovery.Limit <= 0 {
		errs = append(errs, "discovery limit must be positive")
	}
	if c.Discovery.MinScore < 0 || c.Discovery.MinScore > 1 {
		errs = append(errs, "discovery min_score must be between 0 and 1")
	}
	if err := c.Discovery.Weights.validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (w WeightsConfig) validate() error {
	total := 0.0
	for _, weight := range []struct {
		name  string
		value float64
	}{
		{"capability", w.Capability},
		{"domain", w.Domain},
		{"keyword", w.Keyword},
		{"performance", w.Performance},
		{"availability", w.Availability},
		{"load", w.Load},
	} {
		if weight.value < 0 {
			return fmt.Errorf("discovery weight %s must not be negative", weight.name)
		}
		total += weight.value
	}
	if total <= 0 {
		return fmt.Errorf("discovery weights must not all be zero")
	}
	return nil
}
