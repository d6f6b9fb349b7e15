package trust

import (
	"sort"

	id "modzero/pkg/domain"
)

// Default policy configuration used when no policy is active.
const DefaultThreshold = 70.0

// DefaultWeights returns the hard-coded fallback weight set. A fresh map is
// returned each call so callers can mutate freely.
func DefaultWeights() map[FactorName]float64 {
	return map[FactorName]float64{
		FactorDevicePosture: 0.7,
		FactorContext:       0.3,
	}
}

// ResolvedPolicy is the resolver's output: the raw (not yet normalized)
// weight mapping and threshold to score against. PolicyID is nil when the
// defaults were used.
type ResolvedPolicy struct {
	PolicyID  *id.PolicyID
	Weights   map[FactorName]float64
	Threshold float64
}

// PolicyResolver selects the effective policy for an evaluation.
type PolicyResolver struct{}

// NewPolicyResolver constructs a PolicyResolver.
func NewPolicyResolver() *PolicyResolver {
	return &PolicyResolver{}
}

// Resolve picks the active policy with the earliest creation time. Policies
// sharing a creation timestamp are tie-broken by policy ID so selection stays
// deterministic. An empty set resolves to the default weights and threshold.
func (r *PolicyResolver) Resolve(activePolicies []Policy) ResolvedPolicy {
	if len(activePolicies) == 0 {
		return ResolvedPolicy{
			Weights:   DefaultWeights(),
			Threshold: DefaultThreshold,
		}
	}

	candidates := make([]Policy, len(activePolicies))
	copy(candidates, activePolicies)
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	effective := candidates[0]
	policyID := effective.ID
	return ResolvedPolicy{
		PolicyID:  &policyID,
		Weights:   effective.Weights,
		Threshold: effective.Threshold,
	}
}
