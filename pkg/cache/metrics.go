package cache

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide hit/miss/error counters for the cache service.
// Counters live for the process lifetime; Reset exists for tests.
type Metrics struct {
	hits   int64
	misses int64
	errors int64
}

// RecordHit increments the hit counter.
func (m *Metrics) RecordHit() {
	atomic.AddInt64(&m.hits, 1)
}

// RecordMiss increments the miss counter.
func (m *Metrics) RecordMiss() {
	atomic.AddInt64(&m.misses, 1)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError() {
	atomic.AddInt64(&m.errors, 1)
}

// Hits returns the hit count.
func (m *Metrics) Hits() int64 {
	return atomic.LoadInt64(&m.hits)
}

// Misses returns the miss count.
func (m *Metrics) Misses() int64 {
	return atomic.LoadInt64(&m.misses)
}

// Errors returns the error count.
func (m *Metrics) Errors() int64 {
	return atomic.LoadInt64(&m.errors)
}

// HitRate returns hits / (hits + misses), or 0 when no requests were seen.
func (m *Metrics) HitRate() float64 {
	hits := m.Hits()
	total := hits + m.Misses()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Reset zeroes all counters. Test hook only.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.hits, 0)
	atomic.StoreInt64(&m.misses, 0)
	atomic.StoreInt64(&m.errors, 0)
}

// CacheMetrics holds Prometheus metrics for cache operations.
type CacheMetrics struct {
	hitsTotal         *prometheus.CounterVec
	missesTotal       *prometheus.CounterVec
	evictionsTotal    *prometheus.CounterVec
	sizeGauge         *prometheus.GaugeVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

var (
	cacheMetricsInstance *CacheMetrics
	cacheMetricsOnce     sync.Once
)

// GetCacheMetrics returns the singleton cache metrics instance.
func GetCacheMetrics() *CacheMetrics {
	cacheMetricsOnce.Do(func() {
		cacheMetricsInstance = newCacheMetrics()
	})
	return cacheMetricsInstance
}

// MustRegister registers all cache metric collectors with the given
// Prometheus registry. promauto registers with the default global registry;
// this bridges the collectors to a custom registry so they appear on the
// service's own /metrics endpoint.
func (m *CacheMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.hitsTotal,
		m.missesTotal,
		m.evictionsTotal,
		m.sizeGauge,
		m.operationDuration,
		m.errorsTotal,
	)
}

// Init pre-initializes common label combinations with zero values so the
// metrics appear in /metrics output immediately after startup. Idempotent.
func (m *CacheMetrics) Init() {
	for _, tier := range []string{"local", "redis"} {
		m.hitsTotal.WithLabelValues(tier)
		m.missesTotal.WithLabelValues(tier)
		m.evictionsTotal.WithLabelValues(tier)
		m.sizeGauge.WithLabelValues(tier)
		for _, op := range []string{"get", "set", "delete", "scan"} {
			m.operationDuration.WithLabelValues(tier, op)
			m.errorsTotal.WithLabelValues(tier, op)
		}
	}
}

func newCacheMetrics() *CacheMetrics {
	return &CacheMetrics{
		hitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comuniza",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"tier"},
		),
		missesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comuniza",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"tier"},
		),
		evictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comuniza",
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"tier"},
		),
		sizeGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "comuniza",
				Subsystem: "cache",
				Name:      "size",
				Help:      "Current number of items in cache",
			},
			[]string{"tier"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "comuniza",
				Subsystem: "cache",
				Name:      "operation_duration_seconds",
				Help:      "Duration of cache operations",
				Buckets: []float64{
					.0001, .0005, .001, .005,
					.01, .025, .05, .1,
				},
			},
			[]string{"tier", "operation"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "comuniza",
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Total number of cache errors",
			},
			[]string{"tier", "operation"},
		),
	}
}
