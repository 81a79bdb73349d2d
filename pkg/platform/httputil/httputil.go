// Package httputil writes JSON response envelopes for handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "tripmate/pkg/domain-errors"
)

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into {"error": code, "error_description": msg}.
// Descriptions of internal or upstream failures are never sent to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if dErrors.IsClientSafe(code) {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
