package perf

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscout/discovery"
)

const (
	// alpha is the EWMA weight given to the newest observation.
	alpha = 0.2

	// initialReliability is assumed for agents with no recorded history,
	// so reliability starts high and decays with observed failures.
	initialReliability = 1.0
)

// Float returns a pointer to v, for building PerformanceData literals.
func Float(v float64) *float64 {
	return &v
}

// clone deep-copies d so stored pointers never escape to callers.
func clone(d discovery.PerformanceData) discovery.PerformanceData {
	var out discovery.PerformanceData
	if d.SuccessRate != nil {
		out.SuccessRate = Float(*d.SuccessRate)
	}
	if d.AvgResponseTime != nil {
		out.AvgResponseTime = Float(*d.AvgResponseTime)
	}
	if d.Reliability != nil {
		out.Reliability = Float(*d.Reliability)
	}
	return out
}

// merge overlays the non-nil fields of update onto cur.
func merge(cur, update discovery.PerformanceData) discovery.PerformanceData {
	if update.SuccessRate != nil {
		cur.SuccessRate = Float(*update.SuccessRate)
	}
	if update.AvgResponseTime != nil {
		cur.AvgResponseTime = Float(*update.AvgResponseTime)
	}
	if update.Reliability != nil {
		cur.Reliability = Float(*update.Reliability)
	}
	return cur
}

// advance folds one observed execution into cur. Success rate and response
// time seed from the first observation; reliability seeds from
// initialReliability and moves toward the outcome at the same rate.
func advance(cur discovery.PerformanceData, success bool, duration time.Duration) discovery.PerformanceData {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	seconds := duration.Seconds()

	var next discovery.PerformanceData

	if cur.SuccessRate != nil {
		next.SuccessRate = Float(alpha*outcome + (1-alpha)*(*cur.SuccessRate))
	} else {
		next.SuccessRate = Float(outcome)
	}

	if cur.AvgResponseTime != nil {
		next.AvgResponseTime = Float(alpha*seconds + (1-alpha)*(*cur.AvgResponseTime))
	} else {
		next.AvgResponseTime = Float(seconds)
	}

	reliability := initialReliability
	if cur.Reliability != nil {
		reliability = *cur.Reliability
	}
	next.Reliability = Float(alpha*outcome + (1-alpha)*reliability)

	return next
}

// MemoryStore keeps per-agent performance data in process memory. It is
// safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	agents map[string]discovery.PerformanceData
	logger *zap.Logger
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		agents: make(map[string]discovery.PerformanceData),
		logger: logger.With(zap.String("component", "perf_store")),
	}
}

// Snapshot returns the stored data for the requested agents. Agents with
// no history are absent from the result. The returned map and its values
// are copies; mutating them does not affect the store.
func (s *MemoryStore) Snapshot(_ context.Context, agentIDs []string) map[string]discovery.PerformanceData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]discovery.PerformanceData, len(agentIDs))
	for _, id := range agentIDs {
		data, ok := s.agents[id]
		if !ok {
			continue
		}
		snapshot[id] = clone(data)
	}
	return snapshot
}

// Update merges data into the stored record for agentID. Nil fields keep
// their existing values.
func (s *MemoryStore) Update(agentID string, data discovery.PerformanceData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.agents[agentID] = merge(s.agents[agentID], data)
}

// Record folds one observed execution into agentID's metrics.
func (s *MemoryStore) Record(agentID string, success bool, duration time.Duration) {
	s.mu.Lock()
	s.agents[agentID] = advance(s.agents[agentID], success, duration)
	s.mu.Unlock()

	s.logger.Debug("recorded execution",
		zap.String("agent_id", agentID),
		zap.Bool("success", success),
		zap.Duration("duration", duration),
	)
}

// Forget drops all metrics for agentID.
func (s *MemoryStore) Forget(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.agents, agentID)
}

var (
	_ discovery.PerformanceProvider = (*MemoryStore)(nil)
	_ discovery.PerformanceRecorder = (*MemoryStore)(nil)
)
