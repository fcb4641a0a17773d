// Package metrics exposes Prometheus collectors for the query executor and
// the inference engine.
//
// Collectors are registered on an explicit registry passed to New; nothing
// is registered globally. A nil *Metrics is valid and records nothing, so
// callers never need to check before recording.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "semgraph"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDiverged = "diverged"
)

// Metrics holds the semgraph collectors.
type Metrics struct {
	inferenceRuns   *prometheus.CounterVec
	inferencePasses prometheus.Histogram
	quadsDerived    prometheus.Counter
	rulesRegistered prometheus.Gauge
	queryExecutions *prometheus.CounterVec
	storeQuads      prometheus.Gauge
}

// New creates the collectors and registers them on reg.
// Returns nil if reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		inferenceRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_runs_total",
			Help:      "Inference runs by outcome",
		}, []string{"outcome"}),

		inferencePasses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_passes",
			Help:      "Passes taken per inference run",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 100, 1000},
		}),

		quadsDerived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quads_derived_total",
			Help:      "Quads added by inference",
		}),

		rulesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_registered",
			Help:      "Rules registered with the inference engine",
		}),

		queryExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_executions_total",
			Help:      "Query executions by outcome",
		}, []string{"outcome"}),

		storeQuads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_quads",
			Help:      "Quads in the store after the last inference run",
		}),
	}

	reg.MustRegister(
		m.inferenceRuns,
		m.inferencePasses,
		m.quadsDerived,
		m.rulesRegistered,
		m.queryExecutions,
		m.storeQuads,
	)

	return m
}

// ObserveInference records one completed inference run.
func (m *Metrics) ObserveInference(outcome string, passes, derived, storeSize int) {
	if m == nil {
		return
	}
	m.inferenceRuns.WithLabelValues(outcome).Inc()
	m.inferencePasses.Observe(float64(passes))
	m.quadsDerived.Add(float64(derived))
	m.storeQuads.Set(float64(storeSize))
}

// SetRules records the number of registered rules.
func (m *Metrics) SetRules(n int) {
	if m == nil {
		return
	}
	m.rulesRegistered.Set(float64(n))
}

// ObserveQuery records one query execution.
func (m *Metrics) ObserveQuery(outcome string) {
	if m == nil {
		return
	}
	m.queryExecutions.WithLabelValues(outcome).Inc()
}
