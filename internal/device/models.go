// Package device tracks registered devices and their posture checkpoints.
// The latest status per checkpoint feeds the device posture factor.
package device

import (
	"strings"
	"time"

	"modzero/internal/trust"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
)

// Device is a user-registered endpoint identified by the X-Device-ID header.
type Device struct {
	ID          id.DeviceID `json:"id"`
	UserID      id.UserID   `json:"user_id"`
	Name        string      `json:"name"`
	Fingerprint string      `json:"fingerprint"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewDevice validates and constructs a device registration.
func NewDevice(userID id.UserID, name, fingerprint string, now time.Time) (*Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device name cannot be empty")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device owner is required")
	}

	return &Device{
		ID:          id.NewDeviceID(),
		UserID:      userID,
		Name:        name,
		Fingerprint: fingerprint,
		CreatedAt:   now,
	}, nil
}

// PostureCheckpoint is one observation of a device control, e.g. disk
// encryption on or OS patch level current. Later observations of the same
// checkpoint supersede earlier ones.
type PostureCheckpoint struct {
	DeviceID   id.DeviceID            `json:"device_id"`
	Checkpoint string                 `json:"checkpoint"`
	Status     trust.CheckpointStatus `json:"status"`
	RecordedAt time.Time              `json:"recorded_at"`
}

// NewPostureCheckpoint validates and constructs a checkpoint observation.
func NewPostureCheckpoint(deviceID id.DeviceID, checkpoint string, status trust.CheckpointStatus, now time.Time) (*PostureCheckpoint, error) {
	checkpoint = strings.TrimSpace(checkpoint)
	if checkpoint == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "checkpoint name cannot be empty")
	}
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown checkpoint status %q", status)
	}

	return &PostureCheckpoint{
		DeviceID:   deviceID,
		Checkpoint: checkpoint,
		Status:     status,
		RecordedAt: now,
	}, nil
}
