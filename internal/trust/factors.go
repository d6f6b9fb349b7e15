package trust

import (
	"sort"
	"sync"

	dErrors "modzero/pkg/domain-errors"
)

// FactorName identifies a scoring factor. Names are drawn from the registry;
// evaluators never invent unregistered names and policy weights are validated
// against the registry at load time.
type FactorName string

const (
	// FactorDevicePosture scores the device's checkpoint compliance.
	FactorDevicePosture FactorName = "device_posture"
	// FactorContext scores the request's temporal and network origin.
	FactorContext FactorName = "context"
)

// Factor describes a registered scoring factor.
type Factor struct {
	Name        FactorName
	Description string
}

// Registry is the canonical set of named scoring factors. Registration is
// idempotent by name; a factor is immutable once registered.
type Registry struct {
	mu      sync.RWMutex
	factors map[FactorName]Factor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factors: make(map[FactorName]Factor)}
}

// DefaultRegistry returns a registry seeded with the built-in factors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FactorDevicePosture, "Evaluates the device's compliance and posture")
	r.Register(FactorContext, "Evaluates the network and temporal context of the request")
	return r
}

// Register adds a factor, returning the existing entry when the name is
// already taken (upsert-by-name, first description wins).
func (r *Registry) Register(name FactorName, description string) Factor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.factors[name]; ok {
		return existing
	}
	f := Factor{Name: name, Description: description}
	r.factors[name] = f
	return f
}

// Lookup returns the factor registered under name.
func (r *Registry) Lookup(name FactorName) (Factor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factors[name]
	return f, ok
}

// Names returns all registered factor names in lexical order.
func (r *Registry) Names() []FactorName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]FactorName, 0, len(r.factors))
	for name := range r.factors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ValidateWeights checks that every weight key is a registered factor and
// every weight value is non-negative. Called at policy-load time so the
// scorer can trust its inputs.
func (r *Registry) ValidateWeights(weights map[FactorName]float64) error {
	for name, weight := range weights {
		if _, ok := r.Lookup(name); !ok {
			return dErrors.Newf(dErrors.CodeValidation, "unknown factor %q in policy weights", name)
		}
		if weight < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "weight for factor %q cannot be negative", name)
		}
	}
	return nil
}
