// Package policy manages administrator-defined trust policies: factor
// weights plus a minimum threshold. The trust engine consumes a read-only
// view of these aggregates (trust.Policy) at evaluation time.
package policy

import (
	"strings"
	"time"

	"modzero/internal/trust"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
)

// Policy is the administrator-defined aggregate. Name is unique across the
// system. At most one policy is effective at evaluation time; the engine's
// resolver picks the earliest-created active one.
type Policy struct {
	ID          id.PolicyID                  `json:"id"`
	Name        string                       `json:"name"`
	OwnerID     id.UserID                    `json:"owner_id"`
	Description string                       `json:"description"`
	Threshold   float64                      `json:"threshold"`
	Weights     map[trust.FactorName]float64 `json:"weights"`
	Active      bool                         `json:"active"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

// New creates a Policy with domain invariant validation. Weight names are
// validated against the factor registry by the service before persisting;
// this constructor enforces the shape invariants.
func New(owner id.UserID, name, description string, threshold float64, weights map[trust.FactorName]float64, now time.Time) (*Policy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "policy name cannot be empty")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "policy owner is required")
	}
	if threshold < 0 || threshold > 100 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "threshold must be between 0 and 100")
	}
	for factor, weight := range weights {
		if weight < 0 {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "weight for factor %q cannot be negative", factor)
		}
	}

	return &Policy{
		ID:          id.NewPolicyID(),
		Name:        name,
		OwnerID:     owner,
		Description: description,
		Threshold:   threshold,
		Weights:     cloneWeights(weights),
		Active:      false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ToTrustPolicy maps the aggregate to the engine's read-only view.
func (p *Policy) ToTrustPolicy() trust.Policy {
	return trust.Policy{
		ID:        p.ID,
		Weights:   cloneWeights(p.Weights),
		Threshold: p.Threshold,
		CreatedAt: p.CreatedAt,
	}
}

func cloneWeights(weights map[trust.FactorName]float64) map[trust.FactorName]float64 {
	if weights == nil {
		return map[trust.FactorName]float64{}
	}
	cloned := make(map[trust.FactorName]float64, len(weights))
	for name, weight := range weights {
		cloned[name] = weight
	}
	return cloned
}
