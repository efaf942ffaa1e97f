package vcs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "threatcanvas",
		Subsystem: "scan",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of repository fetch-and-analyze calls.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threatcanvas",
		Subsystem: "scan",
		Name:      "fetch_failures_total",
		Help:      "Failed repository fetches by stage.",
	}, []string{"stage"})
)
