// Package telemetry exposes Prometheus collectors and OpenTelemetry trace
// export for deliberation runs.
//
// Metrics is registry-scoped so tests can use a fresh registry; a nil
// *Metrics is valid and records nothing. The engine and invoker always
// create spans through the global tracer provider; InitTracing decides
// whether they go anywhere.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agora"

// Metrics groups the collectors recorded by the invoker and the engine.
type Metrics struct {
	// modelCalls counts model invocations by final outcome.
	// Labels: model, outcome (parsed, unparsed, transport_failure)
	modelCalls *prometheus.CounterVec

	// modelAttempts counts individual backend attempts including retries.
	// Labels: model
	modelAttempts *prometheus.CounterVec

	// modelLatency measures the wall time of one invocation across retries.
	// Labels: model
	modelLatency *prometheus.HistogramVec

	// responses counts resolved agent responses.
	// Labels: condition, change_reason
	responses *prometheus.CounterVec

	// roundEntropy is the entropy after the latest complete round.
	// Labels: experiment, condition
	roundEntropy *prometheus.GaugeVec

	// roundsCompleted counts persisted round_end events.
	// Labels: condition
	roundsCompleted *prometheus.CounterVec

	// collapses counts runs whose entropy history collapsed.
	// Labels: condition
	collapses *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		modelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "calls_total",
			Help:      "Model invocations by final outcome",
		}, []string{"model", "outcome"}),
		modelAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "attempts_total",
			Help:      "Backend attempts including retries",
		}, []string{"model"}),
		modelLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "latency_seconds",
			Help:      "Invocation latency across retries in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"model"}),
		responses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "responses_total",
			Help:      "Resolved agent responses by change reason",
		}, []string{"condition", "change_reason"}),
		roundEntropy: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "entropy_bits",
			Help:      "Stance entropy after the latest complete round",
		}, []string{"experiment", "condition"}),
		roundsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "completed_total",
			Help:      "Rounds persisted with a round_end event",
		}, []string{"condition"}),
		collapses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "experiment",
			Name:      "collapses_total",
			Help:      "Experiments whose entropy collapsed",
		}, []string{"condition"}),
	}
}

// RecordModelCall records one finished invocation.
func (m *Metrics) RecordModelCall(model, outcome string, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(model, outcome).Inc()
	m.modelAttempts.WithLabelValues(model).Add(float64(attempts))
	m.modelLatency.WithLabelValues(model).Observe(d.Seconds())
}

// RecordResponse records one resolved agent response.
func (m *Metrics) RecordResponse(condition, reason string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(condition, reason).Inc()
}

// RecordRound records a completed round and its entropy.
func (m *Metrics) RecordRound(experimentID, condition string, entropy float64) {
	if m == nil {
		return
	}
	m.roundEntropy.WithLabelValues(experimentID, condition).Set(entropy)
	m.roundsCompleted.WithLabelValues(condition).Inc()
}

// RecordCollapse records that an experiment collapsed.
func (m *Metrics) RecordCollapse(condition string) {
	if m == nil {
		return
	}
	m.collapses.WithLabelValues(condition).Inc()
}
