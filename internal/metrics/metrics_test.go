package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilRegistry(t *testing.T) {
	assert.Nil(t, New(nil))
}

func TestNilMetrics_NoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveInference(OutcomeOK, 2, 1, 10)
		m.ObserveQuery(OutcomeError)
		m.SetRules(3)
	})
}

func TestObserveInference(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.ObserveInference(OutcomeOK, 2, 3, 7)
	m.ObserveInference(OutcomeDiverged, 1000, 1000, 1007)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferenceRuns.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferenceRuns.WithLabelValues(OutcomeDiverged)))
	assert.Equal(t, 1003.0, testutil.ToFloat64(m.quadsDerived))
	assert.Equal(t, 1007.0, testutil.ToFloat64(m.storeQuads))
	assert.Equal(t, 1, testutil.CollectAndCount(m.inferencePasses))
}

func TestObserveQueryAndRules(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveQuery(OutcomeOK)
	m.ObserveQuery(OutcomeOK)
	m.ObserveQuery(OutcomeError)
	m.SetRules(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queryExecutions.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryExecutions.WithLabelValues(OutcomeError)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.rulesRegistered))
}

func TestRegistryGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveQuery(OutcomeOK)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["semgraph_query_executions_total"])
	assert.True(t, names["semgraph_rules_registered"])
}
