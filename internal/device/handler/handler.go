package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"modzero/internal/device"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/httputil"
	"modzero/pkg/requestcontext"
)

// Service defines the device operations the handler depends on.
type Service interface {
	Register(ctx context.Context, userID id.UserID, name, fingerprint string) (*device.Device, error)
	Get(ctx context.Context, deviceID id.DeviceID) (*device.Device, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*device.Device, error)
	Delete(ctx context.Context, actor id.UserID, actorRole string, deviceID id.DeviceID) error
	RecordCheckpoint(ctx context.Context, deviceID id.DeviceID, checkpoint string, status trust.CheckpointStatus) (*device.PostureCheckpoint, error)
	LatestCheckpoints(ctx context.Context, deviceID id.DeviceID) ([]trust.CheckpointResult, error)
}

// Handler wires device endpoints to the device service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts device endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/devices", func(r chi.Router) {
		r.Post("/", h.HandleRegister)
		r.Get("/", h.HandleList)
		r.Get("/{deviceID}", h.HandleGet)
		r.Delete("/{deviceID}", h.HandleDelete)
		r.Post("/{deviceID}/checkpoints", h.HandleRecordCheckpoint)
		r.Get("/{deviceID}/posture", h.HandlePosture)
	})
}

// HandleRegister handles POST /devices. The fingerprint comes from the
// client metadata middleware, not the request body.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterDeviceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Register(ctx, requestcontext.UserID(ctx), req.Name, requestcontext.DeviceFingerprint(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "device registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromDevice(d))
}

// HandleList handles GET /devices, scoped to the caller's own devices.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	devices, err := h.service.ListByUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDevices(devices))
}

// HandleGet handles GET /devices/{deviceID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID, ok := h.deviceIDFromPath(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(ctx, deviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if d.UserID != requestcontext.UserID(ctx) && requestcontext.UserRole(ctx) != "admin" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot view another user's device"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDevice(d))
}

// HandleDelete handles DELETE /devices/{deviceID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID, ok := h.deviceIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, requestcontext.UserID(ctx), requestcontext.UserRole(ctx), deviceID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecordCheckpoint handles POST /devices/{deviceID}/checkpoints.
func (h *Handler) HandleRecordCheckpoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	deviceID, ok := h.deviceIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordCheckpointRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cp, err := h.service.RecordCheckpoint(ctx, deviceID, req.Checkpoint, req.ParsedStatus())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCheckpoint(cp))
}

// HandlePosture handles GET /devices/{deviceID}/posture.
func (h *Handler) HandlePosture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID, ok := h.deviceIDFromPath(w, r)
	if !ok {
		return
	}
	results, err := h.service.LatestCheckpoints(ctx, deviceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	checkpoints := make(map[string]string, len(results))
	for _, result := range results {
		checkpoints[result.Checkpoint] = string(result.Status)
	}
	httputil.WriteJSON(w, http.StatusOK, PostureResponse{
		DeviceID:    deviceID.String(),
		Checkpoints: checkpoints,
	})
}

func (h *Handler) deviceIDFromPath(w http.ResponseWriter, r *http.Request) (id.DeviceID, bool) {
	deviceID, err := id.ParseDeviceID(chi.URLParam(r, "deviceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid device id"))
		return id.DeviceID{}, false
	}
	return deviceID, true
}
