package testutil

import (
	"net/http"

	"tripmate/pkg/requestcontext"
)

// WithClientMetadata sets the values the ClientMetadata middleware would, so
// handlers behind the rate limiter see a stable client IP.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}
