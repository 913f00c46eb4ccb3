package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscout/internal/tlsutil"
)

// dialTimeout bounds the connectivity check performed by NewManager.
const dialTimeout = 5 * time.Second

var (
	// ErrCacheMiss is returned by Get and GetJSON when the key does not exist.
	ErrCacheMiss = errors.New("cache: miss")

	// ErrClosed is returned by every method after Close has been called.
	ErrClosed = errors.New("cache: manager closed")
)

// IsCacheMiss reports whether err indicates a missing key.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Config holds the Redis connection settings.
type Config struct {
	// Addr is the Redis host:port.
	Addr string `yaml:"addr" json:"addr"`

	// Password authenticates the connection when non-empty.
	Password string `yaml:"password" json:"password"`

	// DB selects the Redis logical database.
	DB int `yaml:"db" json:"db"`

	// TLS dials Redis over TLS using the settings from internal/tlsutil.
	TLS bool `yaml:"tls" json:"tls"`

	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	// MaxRetries caps command retries inside the go-redis client.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// PoolSize is the maximum number of pooled connections.
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// MinIdleConns keeps that many connections warm in the pool.
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// HealthCheckInterval enables a background Ping loop when positive.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig returns the settings used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		DB:                  0,
		DefaultTTL:          5 * time.Minute,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Manager owns a Redis client and guards it against use after Close.
type Manager struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewManager connects to Redis and verifies the connection with a ping.
// It fails rather than returning a manager that cannot reach the server.
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}

	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}
	if config.TLS {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	m := &Manager{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "cache")),
	}

	if config.HealthCheckInterval > 0 {
		go m.healthCheckLoop()
	}

	m.logger.Info("cache manager initialized",
		zap.String("addr", config.Addr),
		zap.Int("db", config.DB),
		zap.Bool("tls", config.TLS),
	)

	return m, nil
}

// Get returns the string value stored at key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrClosed
	}

	val, err := m.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		m.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("cache: get: %w", err)
	}

	return val, nil
}

// MGet fetches many keys in one round trip. The result contains only the
// keys that exist; missing keys are simply absent, not an error.
func (m *Manager) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	vals, err := m.redis.MGet(ctx, keys...).Result()
	if err != nil {
		m.logger.Error("cache mget failed", zap.Int("keys", len(keys)), zap.Error(err))
		return nil, fmt.Errorf("cache: mget: %w", err)
	}

	found := make(map[string]string, len(keys))
	for i, val := range vals {
		s, ok := val.(string)
		if !ok {
			continue
		}
		found[keys[i]] = s
	}

	return found, nil
}

// Set stores value at key. A zero ttl falls back to Config.DefaultTTL.
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	if err := m.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		m.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache: set: %w", err)
	}

	return nil
}

// GetJSON unmarshals the value stored at key into dest.
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("cache: unmarshal value: %w", err)
	}

	return nil
}

// SetJSON marshals value and stores it at key.
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal value: %w", err)
	}

	return m.Set(ctx, key, string(data), ttl)
}

// Delete removes the given keys. Deleting no keys or missing keys is not
// an error.
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	if len(keys) == 0 {
		return nil
	}

	if err := m.redis.Del(ctx, keys...).Err(); err != nil {
		m.logger.Error("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("cache: delete: %w", err)
	}

	return nil
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	return m.redis.Ping(ctx).Err()
}

// Close releases the Redis connection. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	m.logger.Info("closing cache manager")

	return m.redis.Close()
}

func (m *Manager) healthCheckLoop() {
	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.RLock()
		if m.closed {
			m.mu.RUnlock()
			return
		}
		m.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		if err := m.Ping(ctx); err != nil {
			m.logger.Warn("cache health check failed", zap.Error(err))
		} else {
			m.logger.Debug("cache health check passed")
		}
		cancel()
	}
}
