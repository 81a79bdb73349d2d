package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// RequireAPIKey guards diagnostic endpoints with a shared key passed in the
// X-API-Key header. An empty expected key disables the check.
func RequireAPIKey(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				logger.WarnContext(r.Context(), "unauthorized access - bad api key",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Missing or invalid API key"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
