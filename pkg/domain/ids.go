// Package domain provides typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (a DeviceID can never be passed where a UserID is expected).
// Parse functions enforce the trust-boundary invariant that IDs are valid,
// non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "modzero/pkg/domain-errors"
)

type (
	// UserID identifies a user account.
	UserID uuid.UUID
	// DeviceID identifies a registered device.
	DeviceID uuid.UUID
	// PolicyID identifies a trust policy.
	PolicyID uuid.UUID
	// AttemptID identifies a recorded access attempt.
	AttemptID uuid.UUID
)

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id DeviceID) String() string  { return uuid.UUID(id).String() }
func (id PolicyID) String() string  { return uuid.UUID(id).String() }
func (id AttemptID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DeviceID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id PolicyID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID generates a random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewDeviceID generates a random device ID.
func NewDeviceID() DeviceID { return DeviceID(uuid.New()) }

// NewPolicyID generates a random policy ID.
func NewPolicyID() PolicyID { return PolicyID(uuid.New()) }

// NewAttemptID generates a random attempt ID.
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }

// parseUUID validates that s is a well-formed, non-nil UUID.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	// uuid.Parse accepts several encodings; cap length to reject oversized input early.
	if len(s) > 45 {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", kind)
	}
	return u, nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseDeviceID validates and returns a DeviceID.
func ParseDeviceID(s string) (DeviceID, error) {
	u, err := parseUUID(s, "device id")
	if err != nil {
		return DeviceID{}, err
	}
	return DeviceID(u), nil
}

// ParsePolicyID validates and returns a PolicyID.
func ParsePolicyID(s string) (PolicyID, error) {
	u, err := parseUUID(s, "policy id")
	if err != nil {
		return PolicyID{}, err
	}
	return PolicyID(u), nil
}

// ParseAttemptID validates and returns an AttemptID.
func ParseAttemptID(s string) (AttemptID, error) {
	u, err := parseUUID(s, "attempt id")
	if err != nil {
		return AttemptID{}, err
	}
	return AttemptID(u), nil
}
