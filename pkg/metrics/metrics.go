// Package metrics exposes the Prometheus instrumentation for the HTTP
// surface and the policy layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gearshop_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gearshop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gearshop_http_active_requests",
			Help: "HTTP requests currently in flight",
		},
	)

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gearshop_auth_failures_total",
			Help: "Authentication and authorization denials by error code",
		},
		[]string{"code"},
	)

	LoginRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gearshop_login_rate_limited_total",
			Help: "Login attempts rejected by the rate limiter",
		},
	)
)

// RecordRequest records one completed HTTP request.
func RecordRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAuthFailure counts a denial by its error code.
func RecordAuthFailure(code string) {
	AuthFailuresTotal.WithLabelValues(code).Inc()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		ActiveRequests.Inc()
	} else {
		ActiveRequests.Dec()
	}
}
