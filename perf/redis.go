package perf

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscout/discovery"
	"github.com/BaSui01/agentscout/internal/cache"
	"github.com/BaSui01/agentscout/internal/metrics"
)

// keyPrefix namespaces performance records inside Redis.
const keyPrefix = "agentscout:perf:"

// RedisStore persists per-agent performance data as JSON blobs through the
// cache manager, one key per agent.
type RedisStore struct {
	cache     *cache.Manager
	memory    *MemoryStore
	collector *metrics.Collector
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisStore returns a store persisting through manager.
func NewRedisStore(manager *cache.Manager, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		cache:  manager,
		logger: logger.With(zap.String("component", "perf_redis_store")),
	}
}

// SetWriteThrough mirrors every write into mem, which then answers
// Snapshot when Redis is unreachable.
func (s *RedisStore) SetWriteThrough(mem *MemoryStore) {
	s.memory = mem
}

// SetCollector enables cache hit/miss metrics for snapshot reads.
func (s *RedisStore) SetCollector(collector *metrics.Collector) {
	s.collector = collector
}

// SetTTL overrides the cache manager's default TTL for performance keys.
func (s *RedisStore) SetTTL(ttl time.Duration) {
	s.ttl = ttl
}

// Snapshot fetches all requested agents in one MGET. Agents without a
// record, and records that fail to decode, are absent from the result.
// When the read fails outright the write-through layer, if configured,
// answers instead.
func (s *RedisStore) Snapshot(ctx context.Context, agentIDs []string) map[string]discovery.PerformanceData {
	if len(agentIDs) == 0 {
		return map[string]discovery.PerformanceData{}
	}

	keys := make([]string, len(agentIDs))
	for i, id := range agentIDs {
		keys[i] = perfKey(id)
	}

	found, err := s.cache.MGet(ctx, keys...)
	if err != nil {
		s.logger.Debug("performance snapshot read failed", zap.Error(err))
		if s.memory != nil {
			return s.memory.Snapshot(ctx, agentIDs)
		}
		return map[string]discovery.PerformanceData{}
	}

	snapshot := make(map[string]discovery.PerformanceData, len(found))
	for i, id := range agentIDs {
		raw, ok := found[keys[i]]
		if !ok {
			s.recordMiss()
			continue
		}

		var data discovery.PerformanceData
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			s.logger.Debug("dropping malformed performance record",
				zap.String("agent_id", id), zap.Error(err))
			s.recordMiss()
			continue
		}

		s.recordHit()
		snapshot[id] = data
	}
	return snapshot
}

// Update merges data into agentID's stored record. Nil fields keep their
// existing values.
func (s *RedisStore) Update(ctx context.Context, agentID string, data discovery.PerformanceData) error {
	current, err := s.load(ctx, agentID)
	if err != nil {
		return err
	}
	return s.store(ctx, agentID, merge(current, data))
}

// Record folds one observed execution into agentID's metrics with a
// read-modify-write cycle.
func (s *RedisStore) Record(ctx context.Context, agentID string, success bool, duration time.Duration) error {
	current, err := s.load(ctx, agentID)
	if err != nil {
		return err
	}
	return s.store(ctx, agentID, advance(current, success, duration))
}

// Forget removes agentID's metrics from Redis and the write-through layer.
func (s *RedisStore) Forget(ctx context.Context, agentID string) error {
	if err := s.cache.Delete(ctx, perfKey(agentID)); err != nil {
		return fmt.Errorf("perf: forget %s: %w", agentID, err)
	}
	if s.memory != nil {
		s.memory.Forget(agentID)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, agentID string) (discovery.PerformanceData, error) {
	var data discovery.PerformanceData
	err := s.cache.GetJSON(ctx, perfKey(agentID), &data)
	if cache.IsCacheMiss(err) {
		return discovery.PerformanceData{}, nil
	}
	if err != nil {
		return discovery.PerformanceData{}, fmt.Errorf("perf: load %s: %w", agentID, err)
	}
	return data, nil
}

func (s *RedisStore) store(ctx context.Context, agentID string, data discovery.PerformanceData) error {
	if err := s.cache.SetJSON(ctx, perfKey(agentID), data, s.ttl); err != nil {
		return fmt.Errorf("perf: store %s: %w", agentID, err)
	}
	if s.memory != nil {
		s.memory.Update(agentID, data)
	}
	return nil
}

func (s *RedisStore) recordHit() {
	if s.collector != nil {
		s.collector.RecordCacheHit("perf")
	}
}

func (s *RedisStore) recordMiss() {
	if s.collector != nil {
		s.collector.RecordCacheMiss("perf")
	}
}

func perfKey(agentID string) string {
	return keyPrefix + agentID
}

var _ discovery.PerformanceProvider = (*RedisStore)(nil)
