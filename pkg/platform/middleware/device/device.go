// Package device captures the caller's device identity from transport headers.
//
// The device ID travels in the X-Device-ID header (set by the enrolled agent).
// The fingerprint is derived server-side from the User-Agent so a client
// cannot claim another device class without also forging its traffic shape.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"modzero/pkg/requestcontext"
)

// HeaderDeviceID carries the enrolled device identifier.
const HeaderDeviceID = "X-Device-ID"

// Middleware extracts the device ID header and computes a User-Agent derived
// fingerprint, placing both on the request context. Absence of a device header
// is not an error; the posture evaluator scores unknown devices neutrally.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if deviceID := strings.TrimSpace(r.Header.Get(HeaderDeviceID)); deviceID != "" {
			ctx = requestcontext.WithDeviceID(ctx, deviceID)
		}
		if ua := r.Header.Get("User-Agent"); ua != "" {
			ctx = requestcontext.WithDeviceFingerprint(ctx, Fingerprint(ua))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Fingerprint derives a stable fingerprint from a User-Agent string.
// Browser patch versions are excluded so routine updates don't churn the value.
func Fingerprint(rawUA string) string {
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	// Keep only the major version component.
	if idx := strings.Index(version, "."); idx != -1 {
		version = version[:idx]
	}

	parts := []string{ua.Platform(), ua.OS(), name, version}
	if ua.Bot() {
		parts = append(parts, "bot")
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}
