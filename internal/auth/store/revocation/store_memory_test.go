package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modzero/pkg/platform/sentinel"
)

func TestInMemoryTRL(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked token is reported until expiry", func(t *testing.T) {
		trl := NewInMemoryTRL()
		now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		trl.clock = func() time.Time { return now }

		require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Hour))

		revoked, err := trl.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		now = now.Add(2 * time.Hour)
		revoked, err = trl.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("unknown jti is not revoked", func(t *testing.T) {
		trl := NewInMemoryTRL()
		revoked, err := trl.IsRevoked(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("empty jti is a no-op", func(t *testing.T) {
		trl := NewInMemoryTRL()
		require.NoError(t, trl.RevokeToken(ctx, "", time.Hour))
		revoked, err := trl.IsRevoked(ctx, "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non-positive ttl is rejected", func(t *testing.T) {
		trl := NewInMemoryTRL()
		err := trl.RevokeToken(ctx, "jti-2", 0)
		require.ErrorIs(t, err, sentinel.ErrInvalidState)
	})
}
