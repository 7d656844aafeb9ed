package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskboard",
			Subsystem: "cache",
			Name:      "reads_total",
			Help:      "Cache reads by what the reader observed.",
		},
		[]string{"result"}, // fresh|joined|started
	)

	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskboard",
			Subsystem: "cache",
			Name:      "fetches_total",
			Help:      "Settled fetches by outcome.",
		},
		[]string{"outcome"}, // ok|error|discarded
	)

	invalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskboard",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Keys marked stale after a mutation.",
		},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "taskboard",
			Subsystem: "cache",
			Name:      "fetch_duration_seconds",
			Help:      "Time from fetch start to settle, including retries.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
