package handler

import (
	"strings"

	"modzero/internal/trust"
	dErrors "modzero/pkg/domain-errors"
)

// CreatePolicyRequest is the HTTP request body for POST /policies.
type CreatePolicyRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Threshold   *float64           `json:"threshold"`
	Weights     map[string]float64 `json:"weights"`
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreatePolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 128 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 128 characters")
	}
	if r.Threshold == nil {
		return dErrors.New(dErrors.CodeValidation, "threshold is required")
	}
	if *r.Threshold < 0 || *r.Threshold > 100 {
		return dErrors.New(dErrors.CodeValidation, "threshold must be between 0 and 100")
	}
	if len(r.Weights) == 0 {
		return dErrors.New(dErrors.CodeValidation, "weights are required")
	}
	for factor, weight := range r.Weights {
		if weight < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "weight for factor %q cannot be negative", factor)
		}
	}
	return nil
}

// ParsedWeights returns the weights keyed by factor name.
func (r *CreatePolicyRequest) ParsedWeights() map[trust.FactorName]float64 {
	return toFactorWeights(r.Weights)
}

// UpdatePolicyRequest is the HTTP request body for PUT /policies/{id}.
// All fields are optional; absent fields are left unchanged.
type UpdatePolicyRequest struct {
	Description *string            `json:"description"`
	Threshold   *float64           `json:"threshold"`
	Weights     map[string]float64 `json:"weights"`
}

func (r *UpdatePolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Threshold != nil && (*r.Threshold < 0 || *r.Threshold > 100) {
		return dErrors.New(dErrors.CodeValidation, "threshold must be between 0 and 100")
	}
	for factor, weight := range r.Weights {
		if weight < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "weight for factor %q cannot be negative", factor)
		}
	}
	return nil
}

// ParsedWeights returns the weights keyed by factor name, or nil when the
// request did not carry weights.
func (r *UpdatePolicyRequest) ParsedWeights() map[trust.FactorName]float64 {
	if r.Weights == nil {
		return nil
	}
	return toFactorWeights(r.Weights)
}

func toFactorWeights(weights map[string]float64) map[trust.FactorName]float64 {
	parsed := make(map[trust.FactorName]float64, len(weights))
	for factor, weight := range weights {
		parsed[trust.FactorName(factor)] = weight
	}
	return parsed
}
