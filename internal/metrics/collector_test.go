package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorObserveEvaluation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveEvaluation(10*time.Millisecond, false)
	c.ObserveEvaluation(20*time.Millisecond, true)
	c.ObserveEvaluation(5*time.Millisecond, false)

	require.Equal(t, 3.0, testutil.ToFloat64(c.evaluationsTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(c.evaluationFailures))
}

func TestCollectorObserveIteration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveIteration(12.5)
	c.ObserveIteration(3.25)

	require.Equal(t, 2.0, testutil.ToFloat64(c.iterationsTotal))
	require.Equal(t, 3.25, testutil.ToFloat64(c.bestScore), "gauge tracks the latest best")
}

func TestCollectorRegistersAllSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveEvaluation(time.Millisecond, false)
	c.ObserveIteration(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"parfit_evaluations_total",
		"parfit_evaluation_failures_total",
		"parfit_evaluation_duration_seconds",
		"parfit_iterations_total",
		"parfit_best_score",
	} {
		require.True(t, names[want], "missing metric %s", want)
	}
}
