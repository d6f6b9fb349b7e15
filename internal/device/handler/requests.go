package handler

import (
	"strings"

	"modzero/internal/trust"
	dErrors "modzero/pkg/domain-errors"
)

// RegisterDeviceRequest is the HTTP request body for POST /devices.
type RegisterDeviceRequest struct {
	Name string `json:"name"`
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterDeviceRequest) Validate() error {
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
	return nil
}

// RecordCheckpointRequest is the HTTP request body for
// POST /devices/{id}/checkpoints.
type RecordCheckpointRequest struct {
	Checkpoint string `json:"checkpoint"`
	Status     string `json:"status"`

	parsedStatus trust.CheckpointStatus
}

func (r *RecordCheckpointRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Checkpoint = strings.TrimSpace(r.Checkpoint)
	if r.Checkpoint == "" {
		return dErrors.New(dErrors.CodeValidation, "checkpoint is required")
	}
	if len(r.Checkpoint) > 64 {
		return dErrors.New(dErrors.CodeValidation, "checkpoint must be at most 64 characters")
	}

	status := trust.CheckpointStatus(strings.ToLower(strings.TrimSpace(r.Status)))
	if !status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status must be one of pass, fail, unknown")
	}
	r.parsedStatus = status
	return nil
}

// ParsedStatus returns the validated checkpoint status.
func (r *RecordCheckpointRequest) ParsedStatus() trust.CheckpointStatus {
	return r.parsedStatus
}
