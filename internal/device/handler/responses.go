package handler

import (
	"time"

	"modzero/internal/device"
)

// DeviceResponse is the HTTP representation of a registered device.
type DeviceResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListDevicesResponse is the HTTP response for GET /devices.
type ListDevicesResponse struct {
	Devices []DeviceResponse `json:"devices"`
	Count   int              `json:"count"`
}

// CheckpointResponse is the HTTP representation of a posture observation.
type CheckpointResponse struct {
	DeviceID   string    `json:"device_id"`
	Checkpoint string    `json:"checkpoint"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PostureResponse is the HTTP response for GET /devices/{id}/posture: the
// latest status per checkpoint.
type PostureResponse struct {
	DeviceID    string            `json:"device_id"`
	Checkpoints map[string]string `json:"checkpoints"`
}

// FromDevice converts a domain device to its HTTP representation.
func FromDevice(d *device.Device) DeviceResponse {
	return DeviceResponse{
		ID:          d.ID.String(),
		UserID:      d.UserID.String(),
		Name:        d.Name,
		Fingerprint: d.Fingerprint,
		CreatedAt:   d.CreatedAt,
	}
}

// FromDevices converts a slice of devices for list responses.
func FromDevices(devices []*device.Device) ListDevicesResponse {
	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, FromDevice(d))
	}
	return ListDevicesResponse{Devices: out, Count: len(out)}
}

// FromCheckpoint converts a recorded observation to its HTTP representation.
func FromCheckpoint(cp *device.PostureCheckpoint) CheckpointResponse {
	return CheckpointResponse{
		DeviceID:   cp.DeviceID.String(),
		Checkpoint: cp.Checkpoint,
		Status:     string(cp.Status),
		RecordedAt: cp.RecordedAt,
	}
}
