package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce     sync.Once
	requestsTotal    *prometheus.CounterVec
	latencySeconds   *prometheus.HistogramVec
	rateLimitedTotal prometheus.Counter
	sessionsActive   prometheus.Gauge
	recordsLoaded    prometheus.Counter
	datasetCacheHits prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors served on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradelens_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradelens_http_request_duration_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradelens_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		})

		sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gradelens_sessions_active",
			Help: "Analysis sessions currently held in memory.",
		})

		recordsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradelens_records_loaded_total",
			Help: "Grading records validated from uploads and samples.",
		})

		datasetCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradelens_dataset_cache_hits_total",
			Help: "Uploads served from the validated dataset cache.",
		})

		prometheus.MustRegister(requestsTotal, latencySeconds, rateLimitedTotal, sessionsActive, recordsLoaded, datasetCacheHits)
	})
}
