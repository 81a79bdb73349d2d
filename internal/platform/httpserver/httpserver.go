package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// New builds the HTTP server. Check-in bodies are bounded by the handler, so
// ReadTimeout only needs to cover a selfie upload over a slow mobile link.
// net/http's own errors (TLS handshakes, broken connections) go to log at warn.
func New(addr string, handler http.Handler, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    16 << 10,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}
}
