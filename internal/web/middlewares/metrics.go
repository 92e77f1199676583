package middleware

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Requests counts handled HTTP requests by path.
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaizend_http_requests_total",
			Help: "HTTP requests by path.",
		},
		[]string{"path"},
	)

	// Latency observes request durations by path.
	Latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kaizend_http_request_duration_seconds",
			Help:    "HTTP request durations by path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		duration := time.Since(start).Seconds()
		Requests.WithLabelValues(r.URL.Path).Inc()
		Latency.WithLabelValues(r.URL.Path).Observe(duration)
	})
}
