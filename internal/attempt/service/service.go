package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"modzero/internal/attempt"
	"modzero/internal/live"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/audit"
	"modzero/pkg/platform/sentinel"
	"modzero/pkg/requestcontext"
)

// Store is the persistence port for attempt records.
type Store interface {
	Create(ctx context.Context, a *attempt.AccessAttempt) error
	FindByID(ctx context.Context, attemptID id.AttemptID) (*attempt.AccessAttempt, error)
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*attempt.AccessAttempt, error)
	ListAll(ctx context.Context, limit int) ([]*attempt.AccessAttempt, error)
}

// CheckpointSource supplies the device posture snapshot for evaluation.
type CheckpointSource interface {
	Exists(ctx context.Context, deviceID id.DeviceID) (bool, error)
	LatestCheckpoints(ctx context.Context, deviceID id.DeviceID) ([]trust.CheckpointResult, error)
}

// PolicySource supplies the active policy set for evaluation.
type PolicySource interface {
	ListActiveTrustPolicies(ctx context.Context) ([]trust.Policy, error)
}

// Broadcaster pushes evaluation outcomes to live subscribers.
type Broadcaster interface {
	Broadcast(event live.DecisionEvent)
}

// AuditPublisher records evaluation events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

var tracer = otel.Tracer("modzero/attempt")

// Service orchestrates one trust evaluation: it gathers the posture
// snapshot and active policies, runs the engine, persists the attempt, and
// fans the outcome out to audit and live subscribers.
type Service struct {
	engine      *trust.Engine
	store       Store
	checkpoints CheckpointSource
	policies    PolicySource
	broadcast   Broadcaster
	audit       AuditPublisher
	logger      *slog.Logger
	clock       func() time.Time
}

type Option func(*Service)

func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.broadcast = b }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(engine *trust.Engine, store Store, checkpoints CheckpointSource, policies PolicySource, opts ...Option) *Service {
	s := &Service{
		engine:      engine,
		store:       store,
		checkpoints: checkpoints,
		policies:    policies,
		logger:      slog.Default(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate runs the trust pipeline for the calling user. Device identity,
// client IP, and request time come from the request context; an unparseable
// or unregistered device degrades to the no-device path rather than
// failing the evaluation.
func (s *Service) Evaluate(ctx context.Context, subject id.UserID) (*attempt.AccessAttempt, error) {
	ctx, span := tracer.Start(ctx, "attempt.Evaluate", trace.WithAttributes(
		attribute.String("subject_id", subject.String()),
	))
	defer span.End()

	input := trust.EvaluationInput{
		SubjectID: subject,
		ClientIP:  requestcontext.ClientIP(ctx),
		Timestamp: requestcontext.Now(ctx),
	}
	if input.Timestamp.IsZero() {
		input.Timestamp = s.clock()
	}

	var checkpoints []trust.CheckpointResult
	if raw := requestcontext.DeviceID(ctx); raw != "" {
		if deviceID, err := id.ParseDeviceID(raw); err == nil {
			known, err := s.checkpoints.Exists(ctx, deviceID)
			if err != nil {
				return nil, err
			}
			if known {
				input.DeviceID = &deviceID
				checkpoints, err = s.checkpoints.LatestCheckpoints(ctx, deviceID)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	activePolicies, err := s.policies.ListActiveTrustPolicies(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Evaluate(ctx, input, checkpoints, activePolicies)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "evaluate trust")
	}
	span.SetAttributes(
		attribute.Float64("total_score", result.TotalScore),
		attribute.String("decision", result.Decision.String()),
	)

	record := attempt.FromEvaluation(input, result)
	if err := s.store.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist attempt")
	}

	s.publishAudit(ctx, record)
	if s.broadcast != nil {
		deviceID := ""
		if record.DeviceID != nil {
			deviceID = record.DeviceID.String()
		}
		s.broadcast.Broadcast(live.EventFor(record.ID, record.UserID, deviceID, result, record.Timestamp))
	}

	s.logger.InfoContext(ctx, "attempt evaluated",
		"attempt_id", record.ID,
		"user_id", record.UserID,
		"total_score", record.TotalScore,
		"decision", record.Decision,
	)
	return record, nil
}

func (s *Service) Get(ctx context.Context, attemptID id.AttemptID) (*attempt.AccessAttempt, error) {
	a, err := s.store.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "attempt not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find attempt")
	}
	return a, nil
}

// ListByUser returns a user's attempts, newest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*attempt.AccessAttempt, error) {
	attempts, err := s.store.ListByUser(ctx, userID, normalizeLimit(limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list attempts")
	}
	return attempts, nil
}

// ListAll returns attempts across all users, newest first. Admin only; the
// handler enforces the role check.
func (s *Service) ListAll(ctx context.Context, limit int) ([]*attempt.AccessAttempt, error) {
	attempts, err := s.store.ListAll(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list attempts")
	}
	return attempts, nil
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func (s *Service) publishAudit(ctx context.Context, record *attempt.AccessAttempt) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: record.Timestamp,
		UserID:    record.UserID,
		Subject:   record.ID.String(),
		Action:    string(audit.EventAttemptEvaluated),
		Decision:  record.Decision.String(),
		Reason:    record.Reason,
		IP:        record.IP,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit publish failed", "attempt_id", record.ID, "error", err)
	}
}
