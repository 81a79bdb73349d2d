package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tripmate/internal/platform/middleware"
	"tripmate/internal/registry/models"
	"tripmate/pkg/platform/httputil"
)

// Service lists registrations for the diagnostic endpoint.
type Service interface {
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
}

// Handler serves the registry diagnostics.
type Handler struct {
	registry Service
	apiKey   string
	logger   *slog.Logger
}

// New builds the handler. A non-empty apiKey is required in X-API-Key.
func New(registry Service, apiKey string, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, apiKey: apiKey, logger: logger}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(h.apiKey, h.logger))
		r.Get("/registered_users", h.handleListRegistrations)
	})
}

// RegistrationResponse is one entry of the listing.
type RegistrationResponse struct {
	ID        int64  `json:"id"`
	Phone     string `json:"phone_number"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	regs, err := h.registry.ListRegistrations(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list registrations",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := make([]RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		resp = append(resp, RegistrationResponse{
			ID:        reg.ID,
			Phone:     reg.Phone,
			CreatedAt: reg.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
