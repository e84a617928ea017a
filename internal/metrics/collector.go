// Package metrics exposes run progress as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector aggregates evaluation and iteration measurements. The pool
// reports per-item evaluations; the driver reports iterations. All methods
// are safe for concurrent use.
type Collector struct {
	evaluationsTotal   prometheus.Counter
	evaluationFailures prometheus.Counter
	evaluationDuration prometheus.Histogram
	iterationsTotal    prometheus.Counter
	bestScore          prometheus.Gauge
}

// NewCollector creates a collector registered on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		evaluationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "parfit",
			Name:      "evaluations_total",
			Help:      "Total number of objective evaluations dispatched to workers.",
		}),
		evaluationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "parfit",
			Name:      "evaluation_failures_total",
			Help:      "Evaluations that failed, timed out, or returned a non-finite score.",
		}),
		evaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parfit",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall-clock duration of single objective evaluations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}),
		iterationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "parfit",
			Name:      "iterations_total",
			Help:      "Completed driver iterations.",
		}),
		bestScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "parfit",
			Name:      "best_score",
			Help:      "Best (lowest) score observed so far.",
		}),
	}
}

// ObserveEvaluation records one evaluation's duration and outcome
func (c *Collector) ObserveEvaluation(d time.Duration, failed bool) {
	c.evaluationsTotal.Inc()
	c.evaluationDuration.Observe(d.Seconds())
	if failed {
		c.evaluationFailures.Inc()
	}
}

// ObserveIteration records a completed iteration and the best score so far
func (c *Collector) ObserveIteration(bestScore float64) {
	c.iterationsTotal.Inc()
	c.bestScore.Set(bestScore)
}
