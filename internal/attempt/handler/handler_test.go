package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attemptservice "modzero/internal/attempt/service"
	attemptstore "modzero/internal/attempt/store"
	deviceservice "modzero/internal/device/service"
	devicestore "modzero/internal/device/store"
	policyservice "modzero/internal/policy/service"
	policystore "modzero/internal/policy/store"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	"modzero/pkg/requestcontext"
)

type fixture struct {
	service *attemptservice.Service
	devices *deviceservice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	devices := deviceservice.NewService(devicestore.NewInMemoryStore())
	policies := policyservice.NewService(policystore.NewInMemoryStore(), trust.DefaultRegistry())
	svc := attemptservice.NewService(trust.NewEngine(), attemptstore.NewInMemoryStore(), devices, policies)
	return &fixture{service: svc, devices: devices}
}

// router returns the attempt routes wrapped in middleware that injects an
// authenticated identity and fixed request metadata, the way the real
// middleware chain does.
func (f *fixture) router(userID id.UserID, role, deviceID, clientIP string, at time.Time) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(f.service, logger)
	r := chi.NewRouter()
	h.Register(r)

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := requestcontext.WithUserID(req.Context(), userID)
		ctx = requestcontext.WithUserRole(ctx, role)
		ctx = requestcontext.WithClientIP(ctx, clientIP)
		ctx = requestcontext.WithTime(ctx, at)
		if deviceID != "" {
			ctx = requestcontext.WithDeviceID(ctx, deviceID)
		}
		r.ServeHTTP(w, req.WithContext(ctx))
	})
}

func evaluate(t *testing.T, router http.Handler) AttemptResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/attempts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AttemptResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestEvaluateHandler(t *testing.T) {
	workHour := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	t.Run("allows a trusted request with no device", func(t *testing.T) {
		f := newFixture(t)
		userID := id.NewUserID()
		router := f.router(userID, "employee", "", "192.168.0.12", workHour)

		resp := evaluate(t, router)
		assert.Equal(t, userID.String(), resp.UserID)
		assert.Empty(t, resp.DeviceID)
		// Neutral posture plus a fully trusted context lands in the
		// review band under the default threshold.
		assert.InDelta(t, 65.0, resp.TotalScore, 0.001)
		assert.Equal(t, "review", resp.Decision)
		assert.Len(t, resp.Details, 2)
	})

	t.Run("uses registered device posture", func(t *testing.T) {
		f := newFixture(t)
		userID := id.NewUserID()
		d, err := f.devices.Register(t.Context(), userID, "laptop", "fp-1")
		require.NoError(t, err)
		_, err = f.devices.RecordCheckpoint(t.Context(), d.ID, "antivirus", trust.CheckpointPass)
		require.NoError(t, err)

		router := f.router(userID, "employee", d.ID.String(), "10.0.0.4", workHour)
		resp := evaluate(t, router)
		assert.Equal(t, d.ID.String(), resp.DeviceID)
		// Full posture and full context: 0.7*100 + 0.3*100.
		assert.InDelta(t, 100.0, resp.TotalScore, 0.001)
		assert.Equal(t, "allow", resp.Decision)
	})

	t.Run("denies an untrusted context", func(t *testing.T) {
		f := newFixture(t)
		userID := id.NewUserID()
		offHours := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)
		router := f.router(userID, "employee", "", "203.0.113.50", offHours)

		resp := evaluate(t, router)
		assert.Equal(t, "deny", resp.Decision)
		assert.InDelta(t, 53.0, resp.TotalScore, 0.001)
	})
}

func TestListAttemptsHandler(t *testing.T) {
	workHour := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t)
	alice := id.NewUserID()
	bob := id.NewUserID()

	aliceRouter := f.router(alice, "employee", "", "10.0.0.1", workHour)
	bobRouter := f.router(bob, "employee", "", "10.0.0.2", workHour)
	adminRouter := f.router(id.NewUserID(), "admin", "", "10.0.0.3", workHour)

	evaluate(t, aliceRouter)
	evaluate(t, aliceRouter)
	evaluate(t, bobRouter)

	t.Run("scopes listing to the caller", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts", nil)
		rec := httptest.NewRecorder()
		aliceRouter.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListAttemptsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 2, resp.Count)
		for _, a := range resp.Attempts {
			assert.Equal(t, alice.String(), a.UserID)
		}
	})

	t.Run("admin can list across users", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts?all=true", nil)
		rec := httptest.NewRecorder()
		adminRouter.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListAttemptsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 3, resp.Count)
	})

	t.Run("non-admin cannot list across users", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts?all=true", nil)
		rec := httptest.NewRecorder()
		aliceRouter.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects a malformed limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts?limit=abc", nil)
		rec := httptest.NewRecorder()
		aliceRouter.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetAttemptHandler(t *testing.T) {
	workHour := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t)
	owner := id.NewUserID()

	ownerRouter := f.router(owner, "employee", "", "10.0.0.1", workHour)
	strangerRouter := f.router(id.NewUserID(), "employee", "", "10.0.0.2", workHour)
	adminRouter := f.router(id.NewUserID(), "admin", "", "10.0.0.3", workHour)

	created := evaluate(t, ownerRouter)

	t.Run("owner can fetch their attempt", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts/"+created.ID, nil)
		rec := httptest.NewRecorder()
		ownerRouter.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AttemptResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, created.ID, resp.ID)
		assert.Equal(t, created.Reason, resp.Reason)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts/"+created.ID, nil)
		rec := httptest.NewRecorder()
		strangerRouter.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin can fetch any attempt", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts/"+created.ID, nil)
		rec := httptest.NewRecorder()
		adminRouter.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown attempt returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts/"+id.NewAttemptID().String(), nil)
		rec := httptest.NewRecorder()
		ownerRouter.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/attempts/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		ownerRouter.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEvaluateOnBehalfOf(t *testing.T) {
	workHour := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	post := func(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/attempts", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("admin evaluates for another user", func(t *testing.T) {
		f := newFixture(t)
		target := id.NewUserID()
		adminRouter := f.router(id.NewUserID(), "admin", "", "10.0.0.9", workHour)

		rec := post(t, adminRouter, `{"user_id":"`+target.String()+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp AttemptResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, target.String(), resp.UserID)
	})

	t.Run("employee cannot evaluate for another user", func(t *testing.T) {
		f := newFixture(t)
		router := f.router(id.NewUserID(), "employee", "", "10.0.0.9", workHour)

		rec := post(t, router, `{"user_id":"`+id.NewUserID().String()+`"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("employee naming themselves is fine", func(t *testing.T) {
		f := newFixture(t)
		userID := id.NewUserID()
		router := f.router(userID, "employee", "", "10.0.0.9", workHour)

		rec := post(t, router, `{"user_id":"`+userID.String()+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp AttemptResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, userID.String(), resp.UserID)
	})

	t.Run("rejects a malformed user_id", func(t *testing.T) {
		f := newFixture(t)
		router := f.router(id.NewUserID(), "admin", "", "10.0.0.9", workHour)

		rec := post(t, router, `{"user_id":"not-a-uuid"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
