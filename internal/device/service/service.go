package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"modzero/internal/device"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/audit"
	"modzero/pkg/platform/sentinel"
	"modzero/pkg/requestcontext"
)

// Store is the persistence port for devices and their checkpoints.
type Store interface {
	Create(ctx context.Context, d *device.Device) error
	FindByID(ctx context.Context, deviceID id.DeviceID) (*device.Device, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*device.Device, error)
	Delete(ctx context.Context, deviceID id.DeviceID) error
	AppendCheckpoint(ctx context.Context, cp *device.PostureCheckpoint) error
	LatestCheckpoints(ctx context.Context, deviceID id.DeviceID) ([]trust.CheckpointResult, error)
}

// AuditPublisher records device lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store  Store
	audit  AuditPublisher
	logger *slog.Logger
	clock  func() time.Time
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

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a device for the given user. The fingerprint comes from
// the client metadata middleware and is stored for later drift checks.
func (s *Service) Register(ctx context.Context, userID id.UserID, name, fingerprint string) (*device.Device, error) {
	d, err := device.NewDevice(userID, name, fingerprint, s.clock().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "register device")
	}

	s.publishAudit(ctx, audit.EventDeviceRegistered, d.ID.String(), "")
	s.logger.InfoContext(ctx, "device registered", "device_id", d.ID, "user_id", userID)
	return d, nil
}

func (s *Service) Get(ctx context.Context, deviceID id.DeviceID) (*device.Device, error) {
	d, err := s.store.FindByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "device not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find device")
	}
	return d, nil
}

func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*device.Device, error) {
	devices, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list devices")
	}
	return devices, nil
}

// Delete removes a device and its checkpoint history. Owners may delete
// their own devices; admins may delete any.
func (s *Service) Delete(ctx context.Context, actor id.UserID, actorRole string, deviceID id.DeviceID) error {
	d, err := s.Get(ctx, deviceID)
	if err != nil {
		return err
	}
	if d.UserID != actor && actorRole != "admin" {
		return dErrors.New(dErrors.CodeForbidden, "cannot delete another user's device")
	}

	if err := s.store.Delete(ctx, deviceID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "device not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete device")
	}

	s.publishAudit(ctx, audit.EventDeviceDeleted, deviceID.String(), "")
	return nil
}

// RecordCheckpoint appends a posture observation for the device. The latest
// observation per checkpoint wins at evaluation time.
func (s *Service) RecordCheckpoint(ctx context.Context, deviceID id.DeviceID, checkpoint string, status trust.CheckpointStatus) (*device.PostureCheckpoint, error) {
	cp, err := device.NewPostureCheckpoint(deviceID, checkpoint, status, s.clock().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendCheckpoint(ctx, cp); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "device not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record checkpoint")
	}

	s.publishAudit(ctx, audit.EventCheckpointRecorded, deviceID.String(), checkpoint+"="+string(status))
	s.logger.InfoContext(ctx, "checkpoint recorded",
		"device_id", deviceID,
		"checkpoint", checkpoint,
		"status", status,
	)
	return cp, nil
}

// LatestCheckpoints returns the current posture snapshot for the device.
// An unknown device yields an empty snapshot rather than an error; the
// posture evaluator treats it as neutral.
func (s *Service) LatestCheckpoints(ctx context.Context, deviceID id.DeviceID) ([]trust.CheckpointResult, error) {
	results, err := s.store.LatestCheckpoints(ctx, deviceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load checkpoints")
	}
	return results, nil
}

// Exists reports whether the device is registered.
func (s *Service) Exists(ctx context.Context, deviceID id.DeviceID) (bool, error) {
	_, err := s.store.FindByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "find device")
	}
	return true, nil
}

func (s *Service) publishAudit(ctx context.Context, action audit.AuditEvent, subject, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: s.clock().UTC(),
		UserID:    requestcontext.UserID(ctx),
		Subject:   subject,
		Action:    string(action),
		Reason:    reason,
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit publish failed", "action", action, "error", err)
	}
}
