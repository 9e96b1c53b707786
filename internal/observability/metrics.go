// Package observability turns engine transitions into Prometheus metrics and
// structured log records.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/comigor/amy/internal/conversation"
)

// ProviderBuckets are histogram buckets suited for completion and action
// latencies, ranging from 10ms to 120s.
var ProviderBuckets = []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// TransitionsTotal counts state machine transitions.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amy_transitions_total",
			Help: "State machine transitions",
		},
		[]string{"from", "to", "trigger"},
	)

	// ProviderFailuresTotal counts provider calls that failed and were folded
	// into history.
	ProviderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amy_provider_failures_total",
			Help: "Provider failures",
		},
		[]string{"trigger"},
	)

	// ProviderLatency records completion and action latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "amy_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: ProviderBuckets,
		},
		[]string{"trigger"},
	)

	// BusyRejectionsTotal counts user messages rejected because a turn was in
	// progress.
	BusyRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "amy_busy_rejections_total",
			Help: "Busy rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		TransitionsTotal,
		ProviderFailuresTotal,
		ProviderLatency,
		BusyRejectionsTotal,
	)
}

// MetricsObserver records every transition in the package metrics.
func MetricsObserver() conversation.Observer {
	return func(t conversation.Transition) {
		TransitionsTotal.WithLabelValues(t.From.String(), t.To.String(), t.Trigger.String()).Inc()

		switch t.Trigger {
		case conversation.TriggerCompletionReceived, conversation.TriggerActionCompleted:
			ProviderLatency.WithLabelValues(t.Trigger.String()).Observe(t.Elapsed.Seconds())
			if t.Err != nil {
				ProviderFailuresTotal.WithLabelValues(t.Trigger.String()).Inc()
			}
		}
	}
}
