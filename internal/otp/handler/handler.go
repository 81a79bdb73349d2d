package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tripmate/internal/otp/models"
	"tripmate/internal/platform/middleware"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/httputil"
)

// Service defines the OTP operations the handler needs.
type Service interface {
	Send(ctx context.Context, phone, chatID string) error
	Verify(ctx context.Context, phone, code string) (models.Outcome, error)
}

// Handler serves the OTP endpoints used by the bot.
type Handler struct {
	otp    Service
	logger *slog.Logger
}

func New(otp Service, logger *slog.Logger) *Handler {
	return &Handler{otp: otp, logger: logger}
}

// Register registers the OTP routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/send_otp", h.handleSendOTP)
	r.Post("/verify_otp", h.handleVerifyOTP)
}

type sendRequest struct {
	Phone  string `json:"phone"`
	ChatID string `json:"chat_id"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// Response is the envelope both endpoints answer with.
type Response struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

var outcomeMessages = map[models.Outcome]string{
	models.OutcomeNotFound: "No OTP found",
	models.OutcomeExpired:  "OTP expired",
	models.OutcomeInvalid:  "Invalid OTP",
}

func (h *Handler) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid send otp request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	if err := h.otp.Send(ctx, req.Phone, req.ChatID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			httputil.WriteJSON(w, http.StatusBadRequest, Response{Message: dErrors.ClientMessage(err, "invalid request")})
			return
		}
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			httputil.WriteJSON(w, http.StatusBadGateway, Response{Message: "Failed to send OTP"})
			return
		}
		h.logger.ErrorContext(ctx, "failed to issue otp",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, Response{Message: "Failed to send OTP"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, Response{Success: true, Message: "OTP sent"})
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid verify otp request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	outcome, err := h.otp.Verify(ctx, req.Phone, req.OTP)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			httputil.WriteJSON(w, http.StatusBadRequest, Response{Message: dErrors.ClientMessage(err, "invalid request")})
			return
		}
		h.logger.ErrorContext(ctx, "failed to verify otp",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if outcome == models.OutcomeValid {
		httputil.WriteJSON(w, http.StatusOK, Response{Success: true})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Response{
		Reason:  string(outcome),
		Message: outcomeMessages[outcome],
	})
}
