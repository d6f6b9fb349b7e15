package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the trust module.
type Metrics struct {
	// Factor evaluation latencies by factor name
	FactorLatency *prometheus.HistogramVec

	// Decision outcomes by decision and policy source ("policy" or "default")
	DecisionOutcome *prometheus.CounterVec

	// Total score distribution
	TotalScore prometheus.Histogram

	// Overall evaluation latency including fact loading
	EvaluateLatency prometheus.Histogram
}

// New creates a Metrics instance with all trust module metrics registered.
func New() *Metrics {
	return &Metrics{
		FactorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modzero_trust_factor_duration_seconds",
			Help:    "Duration of per-factor evaluation",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
		}, []string{"factor"}),

		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "modzero_trust_decisions_total",
			Help: "Total trust decisions by outcome and policy source",
		}, []string{"decision", "policy_source"}),

		TotalScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "modzero_trust_total_score",
			Help:    "Distribution of computed trust scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "modzero_trust_evaluate_duration_seconds",
			Help:    "Duration of full attempt evaluation including fact loading",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveFactorLatency records the duration of a single factor evaluation.
func (m *Metrics) ObserveFactorLatency(factor string, d time.Duration) {
	if m != nil {
		m.FactorLatency.WithLabelValues(factor).Observe(d.Seconds())
	}
}

// IncrementDecision records a decision outcome.
func (m *Metrics) IncrementDecision(decision, policySource string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(decision, policySource).Inc()
	}
}

// ObserveTotalScore records a computed total score.
func (m *Metrics) ObserveTotalScore(score float64) {
	if m != nil {
		m.TotalScore.Observe(score)
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
