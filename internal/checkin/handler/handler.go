package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tripmate/internal/checkin/models"
	"tripmate/internal/geofence"
	otpmodels "tripmate/internal/otp/models"
	"tripmate/internal/platform/middleware"
	registrymodels "tripmate/internal/registry/models"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/httputil"
)

// Service runs a check-in decision.
type Service interface {
	CheckIn(ctx context.Context, req models.Request) models.Result
}

// Handler serves the check-in endpoint.
type Handler struct {
	checkin Service
	logger  *slog.Logger
}

func New(checkin Service, logger *slog.Logger) *Handler {
	return &Handler{checkin: checkin, logger: logger}
}

// Register registers the check-in route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/checkin", h.handleCheckIn)
}

// Response is the check-in envelope. TripNumber is present only on success.
type Response struct {
	Success    bool   `json:"success"`
	Result     string `json:"result"`
	Message    string `json:"message"`
	TripNumber int    `json:"trip_number,omitempty"`
}

const multipartOverhead = 1 << 20

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, err := h.parseRequest(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid check-in request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteJSON(w, http.StatusBadRequest, Response{
			Result:  string(models.KindError),
			Message: dErrors.ClientMessage(err, "invalid request"),
		})
		return
	}

	res := h.checkin.CheckIn(ctx, req)
	h.logger.InfoContext(ctx, "check-in decided",
		"request_id", requestID,
		"result", res.Kind,
	)
	httputil.WriteJSON(w, http.StatusOK, Response{
		Success:    res.Succeeded(),
		Result:     string(res.Kind),
		Message:    res.Message,
		TripNumber: res.TripNumber,
	})
}

func (h *Handler) parseRequest(w http.ResponseWriter, r *http.Request) (models.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, registrymodels.MaxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(registrymodels.MaxImageBytes); err != nil {
		return models.Request{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "expected multipart form with a selfie under 8 MiB")
	}

	phone := strings.TrimSpace(r.FormValue("phone_number"))
	if err := otpmodels.ValidatePhone(phone); err != nil {
		return models.Request{}, err
	}

	lat, err := parseCoordinate(r.FormValue("latitude"), "latitude")
	if err != nil {
		return models.Request{}, err
	}
	lon, err := parseCoordinate(r.FormValue("longitude"), "longitude")
	if err != nil {
		return models.Request{}, err
	}
	if _, err := geofence.NewPoint(lat, lon); err != nil {
		return models.Request{}, err
	}

	file, _, err := r.FormFile("selfie")
	if err != nil {
		return models.Request{}, dErrors.Wrap(err, dErrors.CodeValidation, "selfie file is required")
	}
	defer file.Close()
	selfie, err := io.ReadAll(file)
	if err != nil {
		return models.Request{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read selfie")
	}
	if len(selfie) == 0 {
		return models.Request{}, dErrors.New(dErrors.CodeValidation, "selfie file is empty")
	}

	return models.Request{Phone: phone, Latitude: lat, Longitude: lon, Selfie: selfie}, nil
}

func parseCoordinate(raw, field string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeValidation, field+" must be a number")
	}
	return v, nil
}
