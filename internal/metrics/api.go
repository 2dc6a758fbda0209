package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// API/HTTP subsystem metrics
var (
	// HTTPRequestDuration tracks HTTP request latency
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsTotal tracks total HTTP requests by handler, method, status
	HTTPRequestsTotal *prometheus.CounterVec
)

// initAPIMetrics initializes all API subsystem metrics
func initAPIMetrics() {
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nmsweep_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: APIBuckets,
		},
		[]string{"handler", "method", "status"},
	)

	HTTPRequestsTotal = NewCounterVec(
		"nmsweep_http_requests_total",
		"Total HTTP requests processed by the nmsweep API.",
		[]string{"handler", "method", "status"},
	)
}

// registerAPIMetrics registers all API metrics with Prometheus
func registerAPIMetrics() {
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// RecordHTTPRequest records one served request
func RecordHTTPRequest(handler, method, status string, elapsed time.Duration) {
	if HTTPRequestDuration == nil || HTTPRequestsTotal == nil {
		return
	}
	HTTPRequestDuration.WithLabelValues(handler, method, status).Observe(elapsed.Seconds())
	HTTPRequestsTotal.WithLabelValues(handler, method, status).Inc()
}
