/*
Package perf stores per-agent execution metrics and serves them as the
performance snapshot read during scoring.

Two stores are provided. MemoryStore keeps metrics in a mutex-guarded map
and suits embedders that track performance inside one process. RedisStore
persists metrics as JSON through internal/cache so several processes share
one view, and can mirror writes into a MemoryStore that answers snapshot
reads when Redis is unreachable.

Both stores fold observed executions into their metrics with an
exponentially weighted moving average: each Record call advances the
success rate, mean response time and reliability estimate toward the
newest observation.

# Basic Usage

	store := perf.NewMemoryStore(logger)
	store.Record("translator-agent", true, 800*time.Millisecond)
	engine.SetPerformanceProvider(store)

Snapshot never fails: agents with no recorded history are absent from the
returned map and score with neutral defaults downstream.
*/
package perf
