// Package metrics exposes prometheus counters for the account lifecycle
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	// accountOperations counts lifecycle operations by outcome.
	accountOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_account_operations_total",
		Help: "Total number of account lifecycle operations",
	}, []string{"operation", "outcome"})

	// lockouts counts accounts locked after repeated failed logins.
	lockouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_account_lockouts_total",
		Help: "Total number of account lockouts triggered by failed logins",
	})

	// deliveryFailures counts notifier failures by message kind.
	deliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_delivery_failures_total",
		Help: "Total number of failed notification deliveries",
	}, []string{"kind"})

	// sweptSecrets counts expired OTP and reset secrets cleared by the sweeper.
	sweptSecrets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_swept_secrets_total",
		Help: "Total number of expired secrets cleared by the sweeper",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatekeeper_http_request_duration_seconds",
		Help:    "Histogram of HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RecordOperation counts one lifecycle operation
func RecordOperation(operation, outcome string) {
	accountOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordLockout counts one lockout
func RecordLockout() {
	lockouts.Inc()
}

// RecordDeliveryFailure counts one failed notification of the given kind
func RecordDeliveryFailure(kind string) {
	deliveryFailures.WithLabelValues(kind).Inc()
}

// RecordSweep adds the number of cleared secrets
func RecordSweep(cleared int64) {
	if cleared > 0 {
		sweptSecrets.Add(float64(cleared))
	}
}

// ObserveHTTPRequest records a completed HTTP request
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
