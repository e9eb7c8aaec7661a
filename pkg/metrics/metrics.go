// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CompletionDuration tracks completion endpoint call duration.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "Completion endpoint call duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 45},
		},
		[]string{"provider", "outcome"},
	)

	// TurnsTotal tracks conversation turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total conversation turns by outcome",
		},
		[]string{"outcome"},
	)

	// MessagesTotal tracks messages appended to session logs.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"role"},
	)

	// SessionsActive tracks sessions held in memory.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of sessions held in memory",
		},
	)

	// TranscriptPublishFailures tracks failed transcript feed publishes.
	TranscriptPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcript_publish_failures_total",
			Help: "Transcript events that could not be published",
		},
		[]string{"kind"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for a completion endpoint call.
func RecordCompletion(provider, outcome string, duration float64) {
	CompletionDuration.WithLabelValues(provider, outcome).Observe(duration)
}

// RecordTurn records the outcome of a conversation turn.
func RecordTurn(outcome string) {
	TurnsTotal.WithLabelValues(outcome).Inc()
}

// RecordMessage records a message appended with the given role.
func RecordMessage(role string) {
	MessagesTotal.WithLabelValues(role).Inc()
}

// SetActiveSessions sets the in-memory session gauge.
func SetActiveSessions(n int) {
	SessionsActive.Set(float64(n))
}
