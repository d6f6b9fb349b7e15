package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"modzero/internal/policy"
	"modzero/internal/policy/service"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/httputil"
	"modzero/pkg/requestcontext"
)

// Service defines the policy operations the handler depends on.
type Service interface {
	Create(ctx context.Context, owner id.UserID, name, description string, threshold float64, weights map[trust.FactorName]float64) (*policy.Policy, error)
	Get(ctx context.Context, policyID id.PolicyID) (*policy.Policy, error)
	List(ctx context.Context) ([]*policy.Policy, error)
	Update(ctx context.Context, policyID id.PolicyID, params service.UpdateParams) (*policy.Policy, error)
	SetActive(ctx context.Context, policyID id.PolicyID, active bool) (*policy.Policy, error)
	Delete(ctx context.Context, policyID id.PolicyID) error
}

// Handler wires policy management endpoints to the policy service. All
// routes are admin-only; the router mounts them behind the admin guard.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts policy endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{policyID}", h.HandleGet)
		r.Put("/{policyID}", h.HandleUpdate)
		r.Post("/{policyID}/activate", h.HandleActivate)
		r.Post("/{policyID}/deactivate", h.HandleDeactivate)
		r.Delete("/{policyID}", h.HandleDelete)
	})
}

// HandleCreate handles POST /policies.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreatePolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.Create(ctx, requestcontext.UserID(ctx), req.Name, req.Description, *req.Threshold, req.ParsedWeights())
	if err != nil {
		h.logger.ErrorContext(ctx, "policy creation failed",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromPolicy(created))
}

// HandleList handles GET /policies.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policies, err := h.service.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPolicies(policies))
}

// HandleGet handles GET /policies/{policyID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, ok := h.policyIDFromPath(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(ctx, policyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(p))
}

// HandleUpdate handles PUT /policies/{policyID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	policyID, ok := h.policyIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdatePolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.service.Update(ctx, policyID, service.UpdateParams{
		Description: req.Description,
		Threshold:   req.Threshold,
		Weights:     req.ParsedWeights(),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(updated))
}

// HandleActivate handles POST /policies/{policyID}/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// HandleDeactivate handles POST /policies/{policyID}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()

	policyID, ok := h.policyIDFromPath(w, r)
	if !ok {
		return
	}
	p, err := h.service.SetActive(ctx, policyID, active)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "policy state set",
		"request_id", requestcontext.RequestID(ctx),
		"policy_id", policyID,
		"active", active,
	)
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(p))
}

// HandleDelete handles DELETE /policies/{policyID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, ok := h.policyIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, policyID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) policyIDFromPath(w http.ResponseWriter, r *http.Request) (id.PolicyID, bool) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid policy id"))
		return id.PolicyID{}, false
	}
	return policyID, true
}
