package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"modzero/internal/auth"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/httputil"
	"modzero/pkg/requestcontext"
)

// Service defines the auth operations the handler depends on.
type Service interface {
	Register(ctx context.Context, email, password string, role auth.Role) (*auth.User, error)
	Login(ctx context.Context, email, password string) (string, *auth.User, error)
	Logout(ctx context.Context, token string) error
	Get(ctx context.Context, userID id.UserID) (*auth.User, error)
	List(ctx context.Context) ([]*auth.User, error)
	Delete(ctx context.Context, userID id.UserID) error
}

// Handler wires authentication endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected mounts the endpoints that require a valid token.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)
}

// RegisterAdmin mounts the user-management endpoints. The caller gates the
// group behind the admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.HandleListUsers)
		r.Get("/{userID}", h.HandleGetUser)
		r.Delete("/{userID}", h.HandleDeleteUser)
	})
}

// HandleRegister handles POST /auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.service.Register(ctx, req.Email, req.Password, auth.RoleEmployee)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromUser(u))
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, u, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"ip", requestcontext.ClientIP(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        FromUser(u),
	})
}

// HandleLogout handles POST /auth/logout. The token to revoke is the one
// presented in the Authorization header.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}

	if err := h.service.Logout(ctx, token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.service.Get(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUser(u))
}

// HandleListUsers handles GET /users.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUsers(users))
}

// HandleGetUser handles GET /users/{userID}.
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid user id"))
		return
	}

	u, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUser(u))
}

// HandleDeleteUser handles DELETE /users/{userID}. An admin cannot delete
// the account they are logged in as.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid user id"))
		return
	}
	if userID == requestcontext.UserID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvariantViolation, "cannot delete the account you are logged in as"))
		return
	}

	if err := h.service.Delete(ctx, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
