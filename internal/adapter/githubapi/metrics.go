package githubapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threatcanvas",
		Subsystem: "githubapi",
		Name:      "requests_total",
		Help:      "Outbound GitHub API requests by method and status code.",
	}, []string{"method", "status"})

	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "threatcanvas",
		Subsystem: "githubapi",
		Name:      "rate_limit_remaining",
		Help:      "Remaining GitHub API rate limit from the last response.",
	})

	rateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "threatcanvas",
		Subsystem: "githubapi",
		Name:      "rate_limit_waits_total",
		Help:      "Times the client slept waiting for a rate limit reset.",
	})
)
