// Package attempt records access attempts and their evaluation outcomes.
// An attempt is the audit-grade record of one trust decision: who asked,
// from where, what the engine scored, and what it decided.
package attempt

import (
	"fmt"
	"time"

	"modzero/internal/trust"
	id "modzero/pkg/domain"
)

// AccessAttempt is the persisted record of one evaluation.
type AccessAttempt struct {
	ID         id.AttemptID        `json:"id"`
	UserID     id.UserID           `json:"user_id"`
	DeviceID   *id.DeviceID        `json:"device_id,omitempty"`
	IP         string              `json:"ip"`
	Timestamp  time.Time           `json:"timestamp"`
	Decision   trust.Decision      `json:"decision"`
	Reason     string              `json:"reason"`
	TotalScore float64             `json:"total_score"`
	PolicyID   *id.PolicyID        `json:"policy_id,omitempty"`
	Details    []trust.ScoreDetail `json:"details"`
}

// FromEvaluation builds the attempt record from the engine's output.
func FromEvaluation(input trust.EvaluationInput, result *trust.EvaluationResult) *AccessAttempt {
	details := make([]trust.ScoreDetail, len(result.Details))
	copy(details, result.Details)

	return &AccessAttempt{
		ID:         id.NewAttemptID(),
		UserID:     input.SubjectID,
		DeviceID:   input.DeviceID,
		IP:         input.ClientIP,
		Timestamp:  input.Timestamp,
		Decision:   result.Decision,
		Reason:     fmt.Sprintf("total score %.2f, threshold %.2f", result.TotalScore, result.ThresholdUsed),
		TotalScore: result.TotalScore,
		PolicyID:   result.PolicyID,
		Details:    details,
	}
}
