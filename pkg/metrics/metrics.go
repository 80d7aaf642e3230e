package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationEvents records registration flow transitions by step (register|activate|confirm)
	// and outcome (success|invalid|token_not_found|token_timeout|error).
	RegistrationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_registration_events_total",
			Help: "Total number of registration flow steps by outcome",
		},
		[]string{"step", "outcome"},
	)

	// EmailsSent counts template based emails by template name and delivery result.
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_emails_sent_total",
			Help: "Total number of template based emails handed to the mailer",
		},
		[]string{"template", "result"},
	)

	// FlowsPurged counts expired registration flows removed by maintenance.
	FlowsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signup_registration_flows_purged_total",
			Help: "Total number of expired registration flows removed by maintenance",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signup_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
