package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"modzero/internal/attempt"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/httputil"
	"modzero/pkg/requestcontext"
)

// Service defines the attempt operations the handler depends on.
type Service interface {
	Evaluate(ctx context.Context, subject id.UserID) (*attempt.AccessAttempt, error)
	Get(ctx context.Context, attemptID id.AttemptID) (*attempt.AccessAttempt, error)
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*attempt.AccessAttempt, error)
	ListAll(ctx context.Context, limit int) ([]*attempt.AccessAttempt, error)
}

// Handler wires attempt endpoints to the attempt service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts attempt endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/attempts", func(r chi.Router) {
		r.Post("/", h.HandleEvaluate)
		r.Get("/", h.HandleList)
		r.Get("/{attemptID}", h.HandleGet)
	})
}

// HandleEvaluate handles POST /attempts. Every signal the engine needs
// (identity, device, client IP, time) comes from the middleware-populated
// request context; an optional body lets an admin evaluate on behalf of
// another user.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subject := requestcontext.UserID(ctx)
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		if target, named := req.Subject(); named {
			if target != subject && requestcontext.UserRole(ctx) != "admin" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot evaluate an attempt for another user"))
				return
			}
			subject = target
		}
	}

	record, err := h.service.Evaluate(ctx, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "attempt evaluation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromAttempt(record))
}

// HandleList handles GET /attempts. Callers see their own attempts; admins
// may pass ?all=true to list across users. The optional ?limit caps the
// page size.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	var (
		attempts []*attempt.AccessAttempt
		err      error
	)
	if r.URL.Query().Get("all") == "true" {
		if requestcontext.UserRole(ctx) != "admin" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "listing all attempts requires admin role"))
			return
		}
		attempts, err = h.service.ListAll(ctx, limit)
	} else {
		attempts, err = h.service.ListByUser(ctx, requestcontext.UserID(ctx), limit)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttempts(attempts))
}

// HandleGet handles GET /attempts/{attemptID}, restricted to the attempt's
// subject or an admin.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	attemptID, err := id.ParseAttemptID(chi.URLParam(r, "attemptID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid attempt id"))
		return
	}

	record, err := h.service.Get(ctx, attemptID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if record.UserID != requestcontext.UserID(ctx) && requestcontext.UserRole(ctx) != "admin" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot view another user's attempt"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttempt(record))
}
