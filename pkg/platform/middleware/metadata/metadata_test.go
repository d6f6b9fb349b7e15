package metadata

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"modzero/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	t.Run("prefers first X-Forwarded-For entry", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", ClientIPFromRequest(req))
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Real-IP", " 192.168.1.20 ")
		assert.Equal(t, "192.168.1.20", ClientIPFromRequest(req))
	})

	t.Run("strips port from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.1.2.3:54321"
		assert.Equal(t, "10.1.2.3", ClientIPFromRequest(req))
	})

	t.Run("unresolvable address yields undetermined sentinel", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = ""
		assert.Equal(t, requestcontext.UndeterminedIP, ClientIPFromRequest(req))
	})
}
