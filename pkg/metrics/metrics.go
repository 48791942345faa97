// Package metrics provides Prometheus instrumentation for the contract service.
package metrics

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path pattern, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jinjjahalgae",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jinjjahalgae",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ContractsTotal counts contract lifecycle transitions by resulting status.
	ContractsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jinjjahalgae",
			Name:      "contracts_total",
			Help:      "Total contract status transitions by resulting status.",
		},
		[]string{"status"},
	)

	// ProofsTotal counts proof settlements by result.
	ProofsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jinjjahalgae",
			Name:      "proofs_total",
			Help:      "Total proof settlements by result.",
		},
		[]string{"result"},
	)

	// ProofAutoApprovedTotal counts proofs approved by the resolver timeout.
	ProofAutoApprovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jinjjahalgae",
		Name:      "proof_auto_approved_total",
		Help:      "Total proofs auto-approved after the review window expired.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ContractsTotal,
		ProofsTotal,
		ProofAutoApprovedTotal,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for the /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
