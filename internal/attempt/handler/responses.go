package handler

import (
	"time"

	"modzero/internal/attempt"
)

// ScoreDetailResponse is one factor's contribution to the total score.
type ScoreDetailResponse struct {
	Factor       string  `json:"factor"`
	Contribution float64 `json:"contribution"`
}

// AttemptResponse is the HTTP representation of an evaluated access attempt.
type AttemptResponse struct {
	ID         string                `json:"id"`
	UserID     string                `json:"user_id"`
	DeviceID   string                `json:"device_id,omitempty"`
	IP         string                `json:"ip"`
	Timestamp  time.Time             `json:"timestamp"`
	Decision   string                `json:"decision"`
	Reason     string                `json:"reason"`
	TotalScore float64               `json:"total_score"`
	PolicyID   string                `json:"policy_id,omitempty"`
	Details    []ScoreDetailResponse `json:"details"`
}

// ListAttemptsResponse is the HTTP response for GET /attempts.
type ListAttemptsResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
	Count    int               `json:"count"`
}

// FromAttempt converts a stored attempt to its HTTP representation.
func FromAttempt(a *attempt.AccessAttempt) AttemptResponse {
	resp := AttemptResponse{
		ID:         a.ID.String(),
		UserID:     a.UserID.String(),
		IP:         a.IP,
		Timestamp:  a.Timestamp,
		Decision:   a.Decision.String(),
		Reason:     a.Reason,
		TotalScore: a.TotalScore,
		Details:    make([]ScoreDetailResponse, 0, len(a.Details)),
	}
	if a.DeviceID != nil {
		resp.DeviceID = a.DeviceID.String()
	}
	if a.PolicyID != nil {
		resp.PolicyID = a.PolicyID.String()
	}
	for _, detail := range a.Details {
		resp.Details = append(resp.Details, ScoreDetailResponse{
			Factor:       string(detail.FactorName),
			Contribution: detail.Contribution,
		})
	}
	return resp
}

// FromAttempts converts a slice of attempts for list responses.
func FromAttempts(attempts []*attempt.AccessAttempt) ListAttemptsResponse {
	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, FromAttempt(a))
	}
	return ListAttemptsResponse{Attempts: out, Count: len(out)}
}
