package webhookproc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "threatcanvas",
	Subsystem: "webhook",
	Name:      "events_total",
	Help:      "Webhook events by type and outcome.",
}, []string{"event_type", "outcome"})
