// Package metrics declares the Prometheus collectors of the telemetry server.
// They register with the default registry, which /metrics exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_http_requests_total",
			Help: "Total HTTP requests handled by the telemetry server",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telemetry_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// PolicyDecisions counts access policy outcomes: allowed, insufficient_role,
	// record_frozen or not_found.
	PolicyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_policy_decisions_total",
			Help: "Access policy decisions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	BatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telemetry_batch_size",
			Help:    "Number of entries per bulk telemetry request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"operation"},
	)
)
