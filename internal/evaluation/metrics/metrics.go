package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evaluation module.
// Tracks the evaluation critical path, per-status outcomes, contained rule
// errors, and fallback responses.
type Metrics struct {
	EvaluateDuration prometheus.Histogram
	Evaluations      *prometheus.CounterVec
	RuleErrors       prometheus.Counter
	Fallbacks        prometheus.Counter
}

// New creates a new Metrics instance with all evaluation module metrics registered.
func New() *Metrics {
	return &Metrics{
		EvaluateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scorewise_evaluate_duration_seconds",
			Help:    "Duration of scorecard evaluations (request critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scorewise_evaluations_total",
			Help: "Total number of evaluations by eligibility status",
		}, []string{"status"}),
		RuleErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scorewise_rule_errors_total",
			Help: "Total number of factor rule failures contained to zero points",
		}),
		Fallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scorewise_fallback_responses_total",
			Help: "Total number of neutral fallback responses served",
		}),
	}
}

// ObserveEvaluate records the duration of an evaluation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveEvaluate(start time.Time) {
	if m != nil {
		m.EvaluateDuration.Observe(time.Since(start).Seconds())
	}
}

// IncrementEvaluation records a completed evaluation with its status.
func (m *Metrics) IncrementEvaluation(status string) {
	if m != nil {
		m.Evaluations.WithLabelValues(status).Inc()
	}
}

// AddRuleErrors records rule failures contained during one evaluation.
func (m *Metrics) AddRuleErrors(n int) {
	if m != nil && n > 0 {
		m.RuleErrors.Add(float64(n))
	}
}

// IncrementFallback records a neutral fallback response.
func (m *Metrics) IncrementFallback() {
	if m != nil {
		m.Fallbacks.Inc()
	}
}
