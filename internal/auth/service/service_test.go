package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modzero/internal/auth"
	"modzero/internal/auth/store/revocation"
	"modzero/internal/auth/store/user"
	"modzero/internal/jwttoken"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/audit"
	"modzero/pkg/platform/audit/publisher"
	auditmemory "modzero/pkg/platform/audit/store/memory"
)

func newAuthService(t *testing.T) (*Service, *auditmemory.InMemoryStore) {
	t.Helper()
	auditStore := auditmemory.NewInMemoryStore()
	svc := NewService(
		user.NewInMemoryStore(),
		jwttoken.New("test-signing-key", "modzero", "modzero-api"),
		revocation.NewInMemoryTRL(),
		WithAuditPublisher(publisher.NewPublisher(auditStore)),
		WithTokenTTL(time.Hour),
	)
	return svc, auditStore
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and normalizes email", func(t *testing.T) {
		svc, _ := newAuthService(t)
		u, err := svc.Register(ctx, "  Alice@Example.COM ", "correct horse", auth.RoleEmployee)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.NotContains(t, string(u.PasswordHash), "correct horse")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc, _ := newAuthService(t)
		_, err := svc.Register(ctx, "bob@example.com", "password1", auth.RoleEmployee)
		require.NoError(t, err)
		_, err = svc.Register(ctx, "BOB@example.com", "password2", auth.RoleAdmin)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rejects short password and bad role", func(t *testing.T) {
		svc, _ := newAuthService(t)
		_, err := svc.Register(ctx, "carol@example.com", "short", auth.RoleEmployee)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = svc.Register(ctx, "carol@example.com", "long enough", auth.Role("root"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestLoginAndVerify(t *testing.T) {
	ctx := context.Background()
	svc, auditStore := newAuthService(t)

	u, err := svc.Register(ctx, "dave@example.com", "hunter2hunter2", auth.RoleAdmin)
	require.NoError(t, err)

	t.Run("valid credentials yield a verifiable token", func(t *testing.T) {
		token, loggedIn, err := svc.Login(ctx, "dave@example.com", "hunter2hunter2")
		require.NoError(t, err)
		assert.Equal(t, u.ID, loggedIn.ID)

		claims, err := svc.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), claims.UserID)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("wrong password fails uniformly and audits", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "dave@example.com", "wrong")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, _, err = svc.Login(ctx, "nobody@example.com", "whatever")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

		events, err := auditStore.ListAll(ctx)
		require.NoError(t, err)
		var failures int
		for _, event := range events {
			if event.Action == string(audit.EventAuthFailed) {
				failures++
			}
		}
		assert.Equal(t, 2, failures)
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, "erin@example.com", "longpassword", auth.RoleEmployee)
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "erin@example.com", "longpassword")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.Verify(ctx, token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	t.Run("other tokens stay valid", func(t *testing.T) {
		other, _, err := svc.Login(ctx, "erin@example.com", "longpassword")
		require.NoError(t, err)
		_, err = svc.Verify(ctx, other)
		assert.NoError(t, err)
	})
}

func TestListAndDeleteUsers(t *testing.T) {
	ctx := context.Background()
	svc, auditStore := newAuthService(t)

	first, err := svc.Register(ctx, "first@example.com", "longpassword", auth.RoleEmployee)
	require.NoError(t, err)
	second, err := svc.Register(ctx, "second@example.com", "longpassword", auth.RoleAdmin)
	require.NoError(t, err)

	t.Run("lists every account", func(t *testing.T) {
		users, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
	})

	t.Run("delete removes the account and audits", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, first.ID))

		_, err := svc.Get(ctx, first.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		users, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, second.ID, users[0].ID)

		events, err := auditStore.ListAll(ctx)
		require.NoError(t, err)
		var deleted int
		for _, event := range events {
			if event.Action == string(audit.EventUserDeleted) {
				deleted++
				assert.Equal(t, first.ID, event.UserID)
			}
		}
		assert.Equal(t, 1, deleted)
	})

	t.Run("deleting an unknown user yields not found", func(t *testing.T) {
		err := svc.Delete(ctx, first.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
