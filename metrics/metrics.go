// Package metrics exposes Prometheus collectors for workflow observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlanningIterations observes how many generation iterations each run
	// needed before acceptance.
	PlanningIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "planforge",
		Name:      "planning_iterations",
		Help:      "Generation iterations per run before plan acceptance.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})

	// CritiqueScore tracks the most recent critique score.
	CritiqueScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "planforge",
		Name:      "critique_score",
		Help:      "Most recent critique score (1-10).",
	})

	// AnalysesTotal counts topic analyses by outcome.
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planforge",
		Name:      "analyses_total",
		Help:      "Topic analyses by outcome.",
	}, []string{"outcome"})

	// RunsTotal counts workflow runs by terminal status.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planforge",
		Name:      "runs_total",
		Help:      "Workflow runs by terminal status.",
	}, []string{"status"})

	// LLMCallsTotal counts LLM completions by model and outcome.
	LLMCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planforge",
		Name:      "llm_calls_total",
		Help:      "LLM completion attempts by model and outcome.",
	}, []string{"model", "outcome"})
)

// RecordAnalysis increments the analyses counter for one topic outcome.
func RecordAnalysis(succeeded bool) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	AnalysesTotal.WithLabelValues(outcome).Inc()
}

// RecordLLMCall increments the LLM call counter for one attempt.
func RecordLLMCall(model string, succeeded bool) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	LLMCallsTotal.WithLabelValues(model, outcome).Inc()
}
