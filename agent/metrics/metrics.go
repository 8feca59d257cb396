package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Turns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chative_support_turns_total",
			Help: "Chat turns processed, by terminal outcome",
		},
		[]string{"outcome"},
	)

	Routes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chative_support_routes_total",
			Help: "Turns routed to a responder",
		},
		[]string{"agent"},
	)

	ResponderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chative_support_responder_latency_seconds",
			Help:    "Responder invocation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"agent", "status"},
	)

	Escalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chative_support_escalations_total",
			Help: "Escalation tickets issued",
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chative_support_notification_failures_total",
			Help: "Escalation notifications that failed to dispatch",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chative_support_active_sessions",
			Help: "Sessions held by the in-memory store",
		},
	)
)
