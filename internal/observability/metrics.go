package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. Collectors are registered on the
// registerer passed to NewMetrics so tests can use a private registry.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestLatency     *prometheus.HistogramVec
	RequestsInFlight   prometheus.Gauge
	RetrievalDuration  prometheus.Histogram
	GenerationDuration *prometheus.HistogramVec
	CacheLookups       *prometheus.CounterVec
	RateLimitRejects   prometheus.Counter
	PanicRecoveries    prometheus.Counter
}

// NewMetrics creates and registers all collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "endpoint", "http_status"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "api_request_latency_seconds",
				Help:    "API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "api_requests_in_flight",
				Help: "Current number of API requests being processed",
			},
		),
		RetrievalDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recipe_retrieval_duration_seconds",
				Help:    "Time spent embedding the query and ranking the dataset",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipe_generation_duration_seconds",
				Help:    "Time spent generating an AI recipe",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_cache_lookups_total",
				Help: "Recommendation cache lookups by result",
			},
			[]string{"result"},
		),
		RateLimitRejects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "api_rate_limit_rejects_total",
				Help: "Total number of requests rejected due to rate limiting",
			},
		),
		PanicRecoveries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "api_panic_recoveries_total",
				Help: "Total number of panics recovered in HTTP handlers",
			},
		),
	}
}

// ObserveRequest records one completed HTTP request
func (m *Metrics) ObserveRequest(method, endpoint, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.RequestLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRetrieval records one retrieval
func (m *Metrics) ObserveRetrieval(d time.Duration) {
	m.RetrievalDuration.Observe(d.Seconds())
}

// ObserveGeneration records one generation; outcome is "success" or "error"
func (m *Metrics) ObserveGeneration(outcome string, d time.Duration) {
	m.GenerationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// CacheResult records a cache lookup; result is "hit", "miss" or "error"
func (m *Metrics) CacheResult(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}
