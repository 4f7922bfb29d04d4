package cache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := &Metrics{}

	m.RecordHit()
	m.RecordHit()
	m.RecordMiss()
	m.RecordError()

	assert.Equal(t, int64(2), m.Hits())
	assert.Equal(t, int64(1), m.Misses())
	assert.Equal(t, int64(1), m.Errors())
	assert.InDelta(t, 2.0/3.0, m.HitRate(), 1e-9)

	m.Reset()
	assert.Equal(t, int64(0), m.Hits())
	assert.Equal(t, float64(0), m.HitRate(), "no requests means rate zero")
}

func TestCacheMetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	GetCacheMetrics().MustRegister(registry)
	GetCacheMetrics().Init()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		names[f.GetName()] = f
	}

	for _, want := range []string{
		"comuniza_cache_hits_total",
		"comuniza_cache_misses_total",
		"comuniza_cache_evictions_total",
		"comuniza_cache_size",
		"comuniza_cache_operation_duration_seconds",
		"comuniza_cache_errors_total",
	} {
		assert.Contains(t, names, want)
	}

	// Init pre-seeds both tiers on the tier-labelled families.
	assert.GreaterOrEqual(t, len(names["comuniza_cache_hits_total"].GetMetric()), 2)
}

func TestGetCacheMetricsSingleton(t *testing.T) {
	assert.Same(t, GetCacheMetrics(), GetCacheMetrics())
}
