package handler

import (
	"time"

	"modzero/internal/policy"
)

// PolicyResponse is the HTTP representation of a policy.
type PolicyResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	OwnerID     string             `json:"owner_id"`
	Description string             `json:"description"`
	Threshold   float64            `json:"threshold"`
	Weights     map[string]float64 `json:"weights"`
	Active      bool               `json:"active"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ListPoliciesResponse is the HTTP response for GET /policies.
type ListPoliciesResponse struct {
	Policies []PolicyResponse `json:"policies"`
	Count    int              `json:"count"`
}

// FromPolicy converts a domain policy to its HTTP representation.
func FromPolicy(p *policy.Policy) PolicyResponse {
	weights := make(map[string]float64, len(p.Weights))
	for factor, weight := range p.Weights {
		weights[string(factor)] = weight
	}
	return PolicyResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		OwnerID:     p.OwnerID.String(),
		Description: p.Description,
		Threshold:   p.Threshold,
		Weights:     weights,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// FromPolicies converts a slice of policies for list responses.
func FromPolicies(policies []*policy.Policy) ListPoliciesResponse {
	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, FromPolicy(p))
	}
	return ListPoliciesResponse{Policies: out, Count: len(out)}
}
