package trust

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"modzero/internal/trust/metrics"
)

// Engine composes the evaluators, resolver, scorer, and classifier into one
// request-to-decision call. It is stateless and reentrant: every call
// receives all required facts as arguments and returns a fresh result, so
// evaluations may run fully in parallel with no locking.
type Engine struct {
	posture    *PostureEvaluator
	context    *ContextEvaluator
	resolver   *PolicyResolver
	scorer     *TrustScorer
	classifier *DecisionClassifier
	metrics    *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches trust metrics to the engine.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine constructs the evaluation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		posture:    NewPostureEvaluator(),
		context:    NewContextEvaluator(),
		resolver:   NewPolicyResolver(),
		scorer:     NewTrustScorer(),
		classifier: NewDecisionClassifier(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs both factor evaluators, resolves the effective policy, scores
// the factors under its weights, and classifies the total. Identical inputs
// with an identical policy and checkpoint state yield identical results; the
// only non-deterministic input is the timestamp supplied by the caller.
//
// The factor evaluators are independent so they fan out concurrently; neither
// can fail, and the error return exists for context cancellation only.
func (e *Engine) Evaluate(ctx context.Context, input EvaluationInput, checkpoints []CheckpointResult, activePolicies []Policy) (*EvaluationResult, error) {
	var postureScore, contextScore float64

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		postureScore = e.posture.Evaluate(input.DeviceID != nil, checkpoints)
		e.metrics.ObserveFactorLatency(string(FactorDevicePosture), time.Since(start))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		contextScore = e.context.Evaluate(input.ClientIP, input.Timestamp)
		e.metrics.ObserveFactorLatency(string(FactorContext), time.Since(start))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved := e.resolver.Resolve(activePolicies)

	scores := map[FactorName]float64{
		FactorDevicePosture: postureScore,
		FactorContext:       contextScore,
	}
	total := e.scorer.Score(scores, resolved.Weights)
	decision := e.classifier.Classify(total, resolved.Threshold)

	policySource := "default"
	if resolved.PolicyID != nil {
		policySource = "policy"
	}
	e.metrics.IncrementDecision(string(decision), policySource)
	e.metrics.ObserveTotalScore(total)

	return &EvaluationResult{
		TotalScore: total,
		Decision:   decision,
		Details: []ScoreDetail{
			{FactorName: FactorDevicePosture, Contribution: postureScore},
			{FactorName: FactorContext, Contribution: contextScore},
		},
		PolicyID:      resolved.PolicyID,
		ThresholdUsed: resolved.Threshold,
	}, nil
}
