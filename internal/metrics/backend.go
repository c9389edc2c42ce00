// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portald_backend_requests_total",
		Help: "Backend REST calls by operation and outcome",
	}, []string{"op", "outcome"}) // outcome=success|not_found|unauthorized|error

	backendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portald_backend_request_duration_seconds",
		Help:    "Backend REST call latency by operation",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"op"})
)

// ObserveBackendRequest records one backend call.
func ObserveBackendRequest(op, outcome string, d time.Duration) {
	backendRequestsTotal.WithLabelValues(op, outcome).Inc()
	backendRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}
