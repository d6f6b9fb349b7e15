// Package auth manages user accounts and token issuance. Access tokens are
// short-lived JWTs; logout places the token's jti on the revocation list
// until its natural expiry.
package auth

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
)

// Role determines what a user may do. Admins manage policies and see all
// attempts; employees evaluate and see their own.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User is an account that can authenticate and trigger evaluations.
type User struct {
	ID           id.UserID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser validates input and hashes the password with bcrypt.
func NewUser(email, password string, role Role, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if !role.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	return &User{
		ID:           id.NewUserID(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
	}, nil
}

// CheckPassword reports whether the candidate matches the stored hash.
func (u *User) CheckPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(candidate)) == nil
}
