// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "modelgate"

var (
	// requestsTotal counts completed gateway requests by provider and outcome.
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completed chat completion requests by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// attemptsPerRequest observes how many credentials one request consumed.
	attemptsPerRequest = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempts_per_request",
			Help:      "Credential attempts consumed by one request before success or failure.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		},
		[]string{"provider"},
	)

	// requestDuration observes end-to-end handler latency.
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)

// Request outcomes recorded on requestsTotal.
const (
	OutcomeSuccess   = "success"
	OutcomeExhausted = "exhausted"
	OutcomeFatal     = "fatal"
	OutcomeRejected  = "rejected"
)

// CountRequest records one completed gateway request.
func CountRequest(provider, outcome string) {
	requestsTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveAttempts records the credential attempts one request consumed.
func ObserveAttempts(provider string, attempts int) {
	attemptsPerRequest.WithLabelValues(provider).Observe(float64(attempts))
}

// ObserveDuration records end-to-end handler latency.
func ObserveDuration(route string, status int, d time.Duration) {
	requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}
