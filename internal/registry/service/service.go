// Package service is the selfie registry: the writer used by the CLI and the
// read model the check-in orchestrator compares live selfies against.
package service

import (
	"context"
	"errors"
	"log/slog"

	"tripmate/internal/biometric/extractor"
	otpmodels "tripmate/internal/otp/models"
	"tripmate/internal/registry/models"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/audit"
	"tripmate/pkg/platform/sentinel"
	"tripmate/pkg/requestcontext"
)

// Store persists selfies. LatestByPhone returns sentinel.ErrNotFound when the
// phone has none.
type Store interface {
	Insert(ctx context.Context, selfie *models.Selfie) error
	LatestByPhone(ctx context.Context, phone string) (*models.Selfie, error)
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
}

type Service struct {
	store   Store
	logger  *slog.Logger
	auditor audit.Emitter
	hasher  *audit.PhoneHasher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(auditor audit.Emitter, hasher *audit.PhoneHasher) Option {
	return func(s *Service) {
		s.auditor = auditor
		s.hasher = hasher
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Register stores a new reference selfie for phone. Older selfies are kept;
// the newest one wins on lookup.
func (s *Service) Register(ctx context.Context, phone string, image []byte) (*models.Selfie, error) {
	if err := otpmodels.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if len(image) > models.MaxImageBytes {
		return nil, dErrors.New(dErrors.CodeValidation, "selfie is too large")
	}
	if _, err := extractor.Sniff(image); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "selfie must be a JPEG or PNG image")
	}

	selfie := &models.Selfie{Phone: phone, Image: image, CreatedAt: requestcontext.Now(ctx)}
	if err := s.store.Insert(ctx, selfie); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store selfie")
	}

	s.logger.InfoContext(ctx, "selfie registered",
		"request_id", requestcontext.RequestID(ctx),
		"selfie_id", selfie.ID,
	)
	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			Action:    string(audit.EventSelfieRegistered),
			PhoneHash: s.hasher.Hash(phone),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "error", err)
		}
	}
	return selfie, nil
}

// LatestSelfie returns the most recent selfie for phone. A phone without one
// yields a CodeNotFound error.
func (s *Service) LatestSelfie(ctx context.Context, phone string) (*models.Selfie, error) {
	selfie, err := s.store.LatestByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no stored selfie")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load selfie")
	}
	return selfie, nil
}

// ListRegistrations returns every registration, most recent first.
func (s *Service) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	regs, err := s.store.ListRegistrations(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}
