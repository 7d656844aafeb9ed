package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskboard_client",
			Name:      "mutations_total",
			Help:      "Mutations issued, by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	mutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskboard_client",
			Name:      "mutation_duration_seconds",
			Help:      "Latency of mutation requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	fetchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskboard_client",
			Name:      "fetch_failures_total",
			Help:      "Cache fetches that failed after all retries.",
		},
	)

	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskboard_client",
			Name:      "session_transitions_total",
			Help:      "Session state transitions, by resulting status.",
		},
		[]string{"status"},
	)
)

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mutationsTotal.WithLabelValues(op, outcome).Inc()
	mutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
