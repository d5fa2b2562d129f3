// Package metrics provides the centralized Prometheus metrics registry for
// the tap. All metrics are defined in their respective packages (client,
// state) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the tap.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - sendgrid_requests_total{stream, status} (Counter): Total requests by stream and HTTP status
//   - sendgrid_request_duration_seconds{stream, status} (Histogram): Request duration by stream and status
//
// Retry Metrics (pkg/client):
//   - sendgrid_retries_total{stream} (Counter): Retry attempts after server errors
//   - sendgrid_retry_exhausted_total{stream} (Counter): Requests that exhausted max retries
//
// State Store Metrics (pkg/state):
//   - sendgrid_state_errors_total{operation} (Counter): Redis state store errors by operation
//
// Example Prometheus Queries:
//
//   # Request Error Rate per Stream
//   sum by (stream) (rate(sendgrid_requests_total{status=~"5.."}[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(sendgrid_request_duration_seconds_bucket[5m]))
//
//   # Streams Burning Through Retries
//   rate(sendgrid_retries_total[5m]) > 0
