// Package httpserver builds the process-wide HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Read and write timeouts stay unset because
// the /live endpoint holds websocket connections open indefinitely and a
// server-wide deadline would sever them; the header timeout still bounds
// slow clients, and idle keep-alive connections are reaped.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
