// Package httptransport assembles the HTTP surface: middleware chain,
// public and protected route groups, and operational endpoints.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attempthandler "modzero/internal/attempt/handler"
	authhandler "modzero/internal/auth/handler"
	devicehandler "modzero/internal/device/handler"
	"modzero/internal/live"
	policyhandler "modzero/internal/policy/handler"
	authmw "modzero/pkg/platform/middleware/auth"
	devicemw "modzero/pkg/platform/middleware/device"
	"modzero/pkg/platform/middleware/metadata"
	"modzero/pkg/platform/middleware/requestid"
	"modzero/pkg/platform/middleware/requesttime"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth    *authhandler.Handler
	Device  *devicehandler.Handler
	Policy  *policyhandler.Handler
	Attempt *attempthandler.Handler
	Hub     *live.Hub
	AuthMW  *authmw.Middleware
}

// NewRouter wires the full route tree. The middleware chain runs outermost
// to innermost: request ID, request time, client metadata, then device
// identity, so every handler sees a fully populated request context.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(devicemw.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public routes: registration and login.
	h.Auth.RegisterPublic(r)

	// Protected routes: any authenticated user.
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMW.Require)

		h.Auth.RegisterProtected(r)
		h.Device.Register(r)
		h.Attempt.Register(r)

		if h.Hub != nil {
			r.Get("/live", h.Hub.ServeWS)
		}

		// Admin-only routes: policy administration and user management.
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAdmin)
			h.Policy.Register(r)
			h.Auth.RegisterAdmin(r)
		})
	})

	return r
}
