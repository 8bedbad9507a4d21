package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSearchesTotal   = "search_requests_total"
	MetricSearchDuration  = "search_duration_seconds"
	MetricSearchCacheHits = "search_cache_lookups_total"
)

// Metrics contains Prometheus metrics for the search pipeline.
// All operations are thread-safe.
type Metrics struct {
	searches     *prometheus.CounterVec
	duration     prometheus.Histogram
	cacheLookups *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearchesTotal,
			Help: "Total number of search requests by result kind and serving strategy",
		}, []string{"kind", "strategy"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchDuration,
			Help:    "Histogram of search request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSearchCacheHits,
			Help: "Total number of search cache lookups by result",
		}, []string{"result"}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.searches,
		m.duration,
		m.cacheLookups,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSearch records one completed search.
func (m *Metrics) ObserveSearch(kind, strategy string, seconds float64) {
	m.searches.WithLabelValues(kind, strategy).Inc()
	m.duration.Observe(seconds)
}

// IncCacheLookup records a cache lookup outcome.
func (m *Metrics) IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
