package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector registers and records the module's Prometheus metrics.
type Collector struct {
	// Discovery metrics
	discoveriesTotal         *prometheus.CounterVec
	discoveryDuration        prometheus.Histogram
	discoveryCandidates      prometheus.Histogram
	discoveryRecommendations prometheus.Histogram

	// Registry transport metrics
	registryRequestsTotal   *prometheus.CounterVec
	registryRequestDuration *prometheus.HistogramVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a collector and registers its metrics under the given
// namespace. Registration is global, so each process should create at most
// one collector per namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// Discovery metrics
	c.discoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discoveries_total",
			Help:      "Total number of discovery calls",
		},
		[]string{"outcome"},
	)

	c.discoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_duration_seconds",
			Help:      "Discovery call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.discoveryCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_candidates",
			Help:      "Candidates evaluated per discovery call",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	c.discoveryRecommendations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_recommendations",
			Help:      "Recommendations returned per discovery call",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8, 10},
		},
	)

	// Registry transport metrics
	c.registryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_requests_total",
			Help:      "Total number of registry requests",
		},
		[]string{"endpoint", "status"},
	)

	c.registryRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_request_duration_seconds",
			Help:      "Registry request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Cache metrics
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordDiscovery records one discovery call.
func (c *Collector) RecordDiscovery(outcome string, duration time.Duration, candidates, recommendations int) {
	c.discoveriesTotal.WithLabelValues(outcome).Inc()
	c.discoveryDuration.Observe(duration.Seconds())
	c.discoveryCandidates.Observe(float64(candidates))
	c.discoveryRecommendations.Observe(float64(recommendations))
}

// RecordRegistryRequest records one registry request. A non-positive status
// means no HTTP response was received.
func (c *Collector) RecordRegistryRequest(endpoint string, status int, duration time.Duration) {
	c.registryRequestsTotal.WithLabelValues(endpoint, statusClass(status)).Inc()
	c.registryRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// statusClass groups an HTTP status code into a label value.
func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "error"
	}
}
