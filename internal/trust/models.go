// Package trust implements the trust scoring and policy-decision engine.
//
// The engine is a pure-ish computation: it consumes pre-fetched facts
// (checkpoint results, active policies, client metadata) and returns a
// decision with an auditable score breakdown. It never touches storage or the
// network; persistence and notification belong to the caller.
package trust

import (
	"time"

	id "modzero/pkg/domain"
)

// Decision is the tri-state outcome of a trust evaluation.
type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionDeny   Decision = "deny"
	DecisionReview Decision = "review"
)

// IsValid checks if the decision is one of the supported enum values.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionAllow, DecisionDeny, DecisionReview:
		return true
	}
	return false
}

// String returns the string representation.
func (d Decision) String() string { return string(d) }

// CheckpointStatus is the recorded outcome of a posture checkpoint.
type CheckpointStatus string

const (
	CheckpointPass    CheckpointStatus = "pass"
	CheckpointFail    CheckpointStatus = "fail"
	CheckpointUnknown CheckpointStatus = "unknown"
)

// IsValid checks if the status is one of the supported enum values.
func (s CheckpointStatus) IsValid() bool {
	switch s {
	case CheckpointPass, CheckpointFail, CheckpointUnknown:
		return true
	}
	return false
}

// CheckpointResult is the latest recorded status for one posture checkpoint
// of a device. The posture store collapses history to latest-per-checkpoint
// before the engine sees it.
type CheckpointResult struct {
	Checkpoint string
	Status     CheckpointStatus
}

// Policy is the engine's read-only view of an administrator-defined policy:
// factor weights plus a minimum threshold. The CRUD aggregate lives in
// internal/policy; the caller maps it to this view so the engine stays free
// of storage concerns.
type Policy struct {
	ID        id.PolicyID
	Weights   map[FactorName]float64
	Threshold float64
	CreatedAt time.Time
}

// EvaluationInput carries the per-call facts about the access attempt.
// It is ephemeral and owned by the caller.
type EvaluationInput struct {
	SubjectID id.UserID
	DeviceID  *id.DeviceID
	ClientIP  string
	Timestamp time.Time
}

// ScoreDetail is one factor's contribution to the evaluation, produced fresh
// each call and never mutated.
type ScoreDetail struct {
	FactorName   FactorName
	Contribution float64
}

// EvaluationResult is the engine's sole output. Ownership transfers fully to
// the caller, which may persist or discard it.
type EvaluationResult struct {
	TotalScore    float64
	Decision      Decision
	Details       []ScoreDetail
	PolicyID      *id.PolicyID
	ThresholdUsed float64
}
