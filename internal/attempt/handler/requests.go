package handler

import (
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
)

// EvaluateRequest is the optional HTTP request body for POST /attempts.
// When user_id is set, the attempt is evaluated for that user instead of
// the caller; only admins may do so.
type EvaluateRequest struct {
	UserID string `json:"user_id"`

	parsedUserID id.UserID
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.UserID == "" {
		return nil
	}
	parsed, err := id.ParseUserID(r.UserID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "user_id must be a valid UUID")
	}
	r.parsedUserID = parsed
	return nil
}

// Subject returns the target user ID, or false when the body did not name one.
func (r *EvaluateRequest) Subject() (id.UserID, bool) {
	if r == nil || r.UserID == "" {
		return id.UserID{}, false
	}
	return r.parsedUserID, true
}
