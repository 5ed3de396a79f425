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
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
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

	// LLMCallDuration tracks LLM call round-trip duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"provider", "purpose", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// TurnsTotal tracks processed student turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total processed student turns",
		},
		[]string{"scenario", "status"},
	)

	// EvaluationsTotal tracks response evaluations by rating.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_evaluations_total",
			Help: "Total response evaluations by rating",
		},
		[]string{"rating"},
	)

	// ScenarioLoadsTotal tracks scenario initializations.
	ScenarioLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_loads_total",
			Help: "Total scenario initializations",
		},
		[]string{"scenario", "status"},
	)

	// SessionsActive tracks sessions with persisted state.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of sessions with persisted conversation state",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for one LLM round trip.
func RecordLLMCall(provider, purpose, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(provider, purpose, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}
