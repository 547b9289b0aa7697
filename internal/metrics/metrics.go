package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the portal
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Storage Metrics
	BlobReadFailures  *prometheus.CounterVec
	StoreDivergence   *prometheus.GaugeVec
	ReconcileDuration prometheus.Histogram

	// Business Metrics
	RaidsRecordedTotal     *prometheus.CounterVec
	EvaluationUpsertsTotal *prometheus.CounterVec
	EventRegistrations     prometheus.Counter
	SafeModeEnabled        prometheus.Gauge
}

// NewMetricsRegistry registers every metric on reg. The server passes
// prometheus.DefaultRegisterer; tests pass a fresh prometheus.NewRegistry().
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenf_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tenf_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tenf_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenf_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenf_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		BlobReadFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenf_blob_read_failures_total",
				Help: "Blob reads that failed and were treated as absent, by store",
			},
			[]string{"store"},
		),
		StoreDivergence: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tenf_store_divergence_keys",
				Help: "Keys present in the blob store but missing from the relational store",
			},
			[]string{"entity"},
		),
		ReconcileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tenf_reconcile_duration_seconds",
				Help:    "Consistency check execution time in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),

		RaidsRecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenf_raids_recorded_total",
				Help: "Raid edges recorded by source",
			},
			[]string{"source"},
		),
		EvaluationUpsertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenf_evaluation_upserts_total",
				Help: "Evaluation sub-score writes by component",
			},
			[]string{"component"},
		),
		EventRegistrations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tenf_event_registrations_total",
				Help: "Accepted event registrations",
			},
		),
		SafeModeEnabled: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tenf_safe_mode_enabled",
				Help: "1 while safe mode restricts writes to founders",
			},
		),
	}
}
