package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for tripdesk
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Freshness Metrics
	RefreshRequestsTotal prometheus.CounterVec
	FanoutOwnersTotal    prometheus.CounterVec
	SyncStartsTotal      prometheus.CounterVec
	AggregateCallLatency prometheus.HistogramVec
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry with all metrics
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripdesk_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripdesk_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tripdesk_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Freshness Metrics
		RefreshRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripdesk_refresh_requests_total",
				Help: "Explicit refresh-now requests by result",
			},
			[]string{"result"},
		),
		FanoutOwnersTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripdesk_fanout_owners_total",
				Help: "Owners processed by the status fan-out job, by result",
			},
			[]string{"result"},
		),
		SyncStartsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripdesk_sync_starts_total",
				Help: "Inbox sync start requests by result",
			},
			[]string{"result"},
		),
		AggregateCallLatency: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripdesk_aggregate_call_duration_seconds",
				Help:    "Latency of aggregation entry point calls by scope",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"scope"},
		),
	}
}
