package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "modzero/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	deviceID := DeviceID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = deviceID   // compile error
	// var _ DeviceID = userID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(deviceID))
}

// TestParseID_SecurityInvariants validates security-critical parsing rules.
// Parsing must reject attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE users;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400​-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestParseID_AllTypesConsistent verifies that every ID type applies the same
// parsing rules, so no entry point is weaker than another.
func TestParseID_AllTypesConsistent(t *testing.T) {
	valid := uuid.New().String()

	_, errUser := ParseUserID(valid)
	_, errDevice := ParseDeviceID(valid)
	_, errPolicy := ParsePolicyID(valid)
	_, errAttempt := ParseAttemptID(valid)
	assert.NoError(t, errUser)
	assert.NoError(t, errDevice)
	assert.NoError(t, errPolicy)
	assert.NoError(t, errAttempt)

	for _, bad := range []string{"", uuid.Nil.String(), "garbage"} {
		_, errUser := ParseUserID(bad)
		_, errDevice := ParseDeviceID(bad)
		_, errPolicy := ParsePolicyID(bad)
		_, errAttempt := ParseAttemptID(bad)
		assert.Error(t, errUser, bad)
		assert.Error(t, errDevice, bad)
		assert.Error(t, errPolicy, bad)
		assert.Error(t, errAttempt, bad)
	}
}
