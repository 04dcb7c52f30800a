package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reloads  *prometheus.CounterVec
	threads  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_requests_total",
			Help: "Archive API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archive_request_duration_seconds",
			Help:    "Archive API request latency, including artificial latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "archive_reloads_total",
			Help: "Archive file reloads by outcome.",
		}, []string{"outcome"}),
		threads: f.NewGauge(prometheus.GaugeOpts{
			Name: "archive_threads",
			Help: "Threads in the loaded archive.",
		}),
	}
}
