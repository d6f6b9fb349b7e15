package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"modzero/internal/policy"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/audit"
	"modzero/pkg/platform/sentinel"
	"modzero/pkg/requestcontext"
)

// Store is the persistence port for policy aggregates.
type Store interface {
	Create(ctx context.Context, p *policy.Policy) error
	FindByID(ctx context.Context, policyID id.PolicyID) (*policy.Policy, error)
	FindByName(ctx context.Context, name string) (*policy.Policy, error)
	List(ctx context.Context) ([]*policy.Policy, error)
	ListActive(ctx context.Context) ([]*policy.Policy, error)
	Update(ctx context.Context, p *policy.Policy) error
	Delete(ctx context.Context, policyID id.PolicyID) error
}

// AuditPublisher records policy lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// UpdateParams carries the mutable fields of a policy. Nil pointers leave
// the current value untouched.
type UpdateParams struct {
	Description *string
	Threshold   *float64
	Weights     map[trust.FactorName]float64
}

type Service struct {
	store    Store
	registry *trust.Registry
	audit    AuditPublisher
	logger   *slog.Logger
	clock    func() time.Time
}

type Option func(*Service)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(store Store, registry *trust.Registry, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new, inactive policy. Names are unique;
// a duplicate yields a conflict error.
func (s *Service) Create(ctx context.Context, owner id.UserID, name, description string, threshold float64, weights map[trust.FactorName]float64) (*policy.Policy, error) {
	if err := s.registry.ValidateWeights(weights); err != nil {
		return nil, err
	}

	p, err := policy.New(owner, name, description, threshold, weights, s.clock().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "policy name %q already in use", p.Name)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create policy")
	}

	s.publishAudit(ctx, audit.EventPolicyCreated, p, "")
	s.logger.InfoContext(ctx, "policy created", "policy_id", p.ID, "name", p.Name, "threshold", p.Threshold)
	return p, nil
}

func (s *Service) Get(ctx context.Context, policyID id.PolicyID) (*policy.Policy, error) {
	p, err := s.store.FindByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find policy")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*policy.Policy, error) {
	policies, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list policies")
	}
	return policies, nil
}

// ListActiveTrustPolicies returns the active policies as engine views. The
// attempt service feeds these to the resolver on every evaluation.
func (s *Service) ListActiveTrustPolicies(ctx context.Context) ([]trust.Policy, error) {
	policies, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list active policies")
	}
	views := make([]trust.Policy, 0, len(policies))
	for _, p := range policies {
		views = append(views, p.ToTrustPolicy())
	}
	return views, nil
}

// Update applies the given mutable fields. Name and owner are immutable.
func (s *Service) Update(ctx context.Context, policyID id.PolicyID, params UpdateParams) (*policy.Policy, error) {
	p, err := s.Get(ctx, policyID)
	if err != nil {
		return nil, err
	}

	if params.Threshold != nil {
		if *params.Threshold < 0 || *params.Threshold > 100 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "threshold must be between 0 and 100")
		}
		p.Threshold = *params.Threshold
	}
	if params.Weights != nil {
		if err := s.registry.ValidateWeights(params.Weights); err != nil {
			return nil, err
		}
		weights := make(map[trust.FactorName]float64, len(params.Weights))
		for name, weight := range params.Weights {
			weights[name] = weight
		}
		p.Weights = weights
	}
	if params.Description != nil {
		p.Description = strings.TrimSpace(*params.Description)
	}
	p.UpdatedAt = s.clock().UTC()

	if err := s.store.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update policy")
	}

	s.publishAudit(ctx, audit.EventPolicyUpdated, p, "")
	return p, nil
}

// SetActive toggles whether the policy participates in evaluation.
// Activation is idempotent.
func (s *Service) SetActive(ctx context.Context, policyID id.PolicyID, active bool) (*policy.Policy, error) {
	p, err := s.Get(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if p.Active == active {
		return p, nil
	}

	p.Active = active
	p.UpdatedAt = s.clock().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update policy state")
	}

	event := audit.EventPolicyActivated
	if !active {
		event = audit.EventPolicyDeactivated
	}
	s.publishAudit(ctx, event, p, "")
	s.logger.InfoContext(ctx, "policy state changed", "policy_id", p.ID, "active", active)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, policyID id.PolicyID) error {
	p, err := s.Get(ctx, policyID)
	if err != nil {
		return err
	}
	if p.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "active policy cannot be deleted; deactivate it first")
	}

	if err := s.store.Delete(ctx, policyID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete policy")
	}

	s.publishAudit(ctx, audit.EventPolicyDeleted, p, "")
	return nil
}

func (s *Service) publishAudit(ctx context.Context, action audit.AuditEvent, p *policy.Policy, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: s.clock().UTC(),
		UserID:    requestcontext.UserID(ctx),
		Subject:   p.ID.String(),
		Action:    string(action),
		Reason:    reason,
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit publish failed", "action", action, "error", err)
	}
}
