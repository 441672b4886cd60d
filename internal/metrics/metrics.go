// Package metrics provides Prometheus metrics for Sigil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sigil"

var (
	// SessionDecodeTotal counts session token decodes by result.
	SessionDecodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_decode_total",
			Help:      "Total number of session token decodes",
		},
		[]string{"result"},
	)

	// LoginTotal counts admin login attempts by result.
	LoginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Total number of admin login attempts",
		},
		[]string{"result"},
	)

	// StorageRequestsTotal counts object store requests.
	// status is the HTTP status code, or "error" when no response was received.
	StorageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_requests_total",
			Help:      "Total number of object store requests",
		},
		[]string{"operation", "status"},
	)

	// StorageRequestDuration measures object store request duration.
	StorageRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_request_duration_seconds",
			Help:      "Duration of object store requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DiagnosticRunsTotal counts storage health check runs by result.
	DiagnosticRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostic_runs_total",
			Help:      "Total number of storage health check runs",
		},
		[]string{"result"},
	)
)

// RecordSessionDecode records the outcome of a token decode.
func RecordSessionDecode(result string) {
	SessionDecodeTotal.WithLabelValues(result).Inc()
}

// RecordLogin records the outcome of a login attempt.
func RecordLogin(result string) {
	LoginTotal.WithLabelValues(result).Inc()
}

// RecordStorageRequest records an object store request.
// A zero statusCode means the request never got a response.
func RecordStorageRequest(operation string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	StorageRequestsTotal.WithLabelValues(operation, status).Inc()
	StorageRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDiagnosticRun records the outcome of a health check run.
func RecordDiagnosticRun(result string) {
	DiagnosticRunsTotal.WithLabelValues(result).Inc()
}
