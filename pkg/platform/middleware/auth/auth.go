// Package auth provides the bearer-token middleware guarding protected routes.
package auth

import (
	"context"
	"net/http"
	"strings"

	"modzero/internal/jwttoken"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/httputil"
	"modzero/pkg/requestcontext"
)

// TokenVerifier validates access tokens and returns their claims.
type TokenVerifier interface {
	ValidateToken(token string) (*jwttoken.Claims, error)
}

// RevocationChecker reports whether a token (by jti) has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Middleware authenticates requests and places the typed user ID and role on
// the context. Revocation check failures deny access rather than admitting a
// possibly-revoked token.
type Middleware struct {
	verifier   TokenVerifier
	revocation RevocationChecker
}

// New constructs the auth middleware. revocation may be nil when no
// revocation list is configured.
func New(verifier TokenVerifier, revocation RevocationChecker) *Middleware {
	return &Middleware{verifier: verifier, revocation: revocation}
}

// Require wraps a handler, rejecting requests without a valid bearer token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
			return
		}

		claims, err := m.verifier.ValidateToken(token)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		if m.revocation != nil {
			revoked, err := m.revocation.IsRevoked(r.Context(), claims.ID)
			if err != nil || revoked {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token revoked"))
				return
			}
		}

		userID, err := id.ParseUserID(claims.UserID)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
			return
		}

		ctx := requestcontext.WithUserID(r.Context(), userID)
		ctx = requestcontext.WithUserRole(ctx, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin additionally rejects non-admin callers. Must be mounted inside
// Require.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.UserRole(r.Context()) != "admin" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
