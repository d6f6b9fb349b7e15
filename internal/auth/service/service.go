package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"modzero/internal/auth"
	"modzero/internal/jwttoken"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/audit"
	"modzero/pkg/platform/sentinel"
	"modzero/pkg/requestcontext"
)

// UserStore is the persistence port for user accounts.
type UserStore interface {
	Create(ctx context.Context, u *auth.User) error
	FindByID(ctx context.Context, userID id.UserID) (*auth.User, error)
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	ListAll(ctx context.Context) ([]*auth.User, error)
	Delete(ctx context.Context, userID id.UserID) error
}

// TokenRevocationList tracks revoked token IDs until expiry.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuditPublisher records authentication events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	users    UserStore
	tokens   *jwttoken.Service
	trl      TokenRevocationList
	tokenTTL time.Duration
	audit    AuditPublisher
	logger   *slog.Logger
	clock    func() time.Time
}

type Option func(*Service)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(users UserStore, tokens *jwttoken.Service, trl TokenRevocationList, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		trl:      trl,
		tokenTTL: 8 * time.Hour,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user account. Email is unique; duplicates conflict.
func (s *Service) Register(ctx context.Context, email, password string, role auth.Role) (*auth.User, error) {
	u, err := auth.NewUser(email, password, role, s.clock().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}

	s.publishAudit(ctx, audit.EventUserCreated, u.ID, u.ID.String(), "")
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login verifies credentials and issues an access token. Failures are
// reported uniformly so callers cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (string, *auth.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.publishAudit(ctx, audit.EventAuthFailed, id.UserID{}, email, "unknown email")
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}

	if !u.CheckPassword(password) {
		s.publishAudit(ctx, audit.EventAuthFailed, u.ID, u.ID.String(), "bad password")
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.GenerateAccessToken(u.ID, string(u.Role), s.tokenTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}

	s.publishAudit(ctx, audit.EventTokenIssued, u.ID, u.ID.String(), "")
	s.logger.InfoContext(ctx, "user logged in", "user_id", u.ID)
	return token, u, nil
}

// Logout revokes the presented token for the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return err
	}

	ttl := s.tokenTTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.trl.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke token")
	}

	revokedUser, _ := id.ParseUserID(claims.UserID)
	s.publishAudit(ctx, audit.EventTokenRevoked, revokedUser, claims.UserID, "")
	return nil
}

// Verify validates the token signature and checks the revocation list.
// Used by the auth middleware on every authenticated request.
func (s *Service) Verify(ctx context.Context, token string) (*jwttoken.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.trl.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "check token revocation")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}
	return claims, nil
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*auth.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	return u, nil
}

// List returns every user account, oldest first. Admin only; the handler
// enforces the role check.
func (s *Service) List(ctx context.Context) ([]*auth.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list users")
	}
	return users, nil
}

// Delete removes a user account. Attempts already recorded for the user are
// kept; they identify the subject by ID, not by account row.
func (s *Service) Delete(ctx context.Context, userID id.UserID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete user")
	}

	s.publishAudit(ctx, audit.EventUserDeleted, userID, userID.String(), "")
	s.logger.InfoContext(ctx, "user deleted", "user_id", userID)
	return nil
}

func (s *Service) publishAudit(ctx context.Context, action audit.AuditEvent, userID id.UserID, subject, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: s.clock().UTC(),
		UserID:    userID,
		Subject:   subject,
		Action:    string(action),
		Reason:    reason,
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit publish failed", "action", action, "error", err)
	}
}
