package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"time"

	"tripmate/internal/otp/delivery"
	"tripmate/internal/otp/metrics"
	"tripmate/internal/otp/models"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/audit"
	"tripmate/pkg/requestcontext"
)

// Store persists at most one live record per phone. Update must run fn and
// apply its action atomically with respect to other calls for the same phone.
type Store interface {
	Put(ctx context.Context, rec models.Record) error
	Update(ctx context.Context, phone string, fn func(current *models.Record) (models.Action, error)) error
}

// Sender delivers a rendered code to the user.
type Sender interface {
	Send(ctx context.Context, msg delivery.Message) error
}

// Config carries the OTP lifecycle parameters.
type Config struct {
	TTL        time.Duration
	CodeLength int
	// Channel labels delivery metrics, e.g. "telegram" or "sms".
	Channel string
}

const (
	DefaultTTL        = 300 * time.Second
	DefaultCodeLength = 6
)

// Service issues and verifies one-time codes. Verification consumes the code:
// a successful or expired check deletes the record, a wrong code leaves it.
type Service struct {
	store   Store
	sender  Sender
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Emitter
	hasher  *audit.PhoneHasher
	random  io.Reader
}

type Option func(*Service)

func WithSender(sender Sender) Option {
	return func(s *Service) { s.sender = sender }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(auditor audit.Emitter, hasher *audit.PhoneHasher) Option {
	return func(s *Service) {
		s.auditor = auditor
		s.hasher = hasher
	}
}

// WithRandom overrides the entropy source used for codes.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

func New(store Store, cfg Config, opts ...Option) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	s := &Service{store: store, cfg: cfg, random: rand.Reader}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Issue creates a fresh code for phone, replacing any previous one.
func (s *Service) Issue(ctx context.Context, phone string) (string, error) {
	if err := models.ValidatePhone(phone); err != nil {
		return "", err
	}
	code, err := s.generateCode()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	rec := models.Record{Phone: phone, Code: code, IssuedAt: requestcontext.Now(ctx)}
	if err := s.store.Put(ctx, rec); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}
	s.metrics.IncIssued()
	s.emit(ctx, audit.EventOTPIssued, phone, "", "")
	return code, nil
}

// Send issues a code and delivers it. When delivery fails the code stays
// stored and the error carries CodeUnavailable.
func (s *Service) Send(ctx context.Context, phone, chatID string) error {
	if s.sender == nil {
		return dErrors.New(dErrors.CodeUnavailable, "no delivery channel configured")
	}
	code, err := s.Issue(ctx, phone)
	if err != nil {
		return err
	}
	msg := delivery.Message{Phone: phone, ChatID: chatID, Text: delivery.CodeText(code)}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.IncDeliveryFailure(s.cfg.Channel)
		s.logger.WarnContext(ctx, "otp delivery failed",
			"request_id", requestcontext.RequestID(ctx),
			"channel", s.cfg.Channel,
			"error", err,
		)
		s.emit(ctx, audit.EventOTPDeliveryFailed, phone, "failed", s.cfg.Channel)
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to send OTP")
	}
	return nil
}

// Verify checks code against the live record for phone.
func (s *Service) Verify(ctx context.Context, phone, code string) (models.Outcome, error) {
	if err := models.ValidatePhone(phone); err != nil {
		return "", err
	}
	now := requestcontext.Now(ctx)
	var outcome models.Outcome
	err := s.store.Update(ctx, phone, func(current *models.Record) (models.Action, error) {
		switch {
		case current == nil:
			outcome = models.OutcomeNotFound
			return models.ActionKeep, nil
		case current.IsExpired(now, s.cfg.TTL):
			outcome = models.OutcomeExpired
			return models.ActionDelete, nil
		case subtle.ConstantTimeCompare([]byte(current.Code), []byte(code)) == 1:
			outcome = models.OutcomeValid
			return models.ActionDelete, nil
		default:
			outcome = models.OutcomeInvalid
			return models.ActionKeep, nil
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", dErrors.Wrap(err, dErrors.CodeTimeout, "verification aborted")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
	}

	s.metrics.IncVerification(string(outcome))
	if outcome == models.OutcomeValid {
		s.emit(ctx, audit.EventOTPVerified, phone, string(outcome), "")
	} else {
		s.emit(ctx, audit.EventOTPRejected, phone, string(outcome), "")
	}
	return outcome, nil
}

// generateCode returns CodeLength uniformly random decimal digits.
func (s *Service) generateCode() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.cfg.CodeLength)), nil)
	n, err := rand.Int(s.random, limit)
	if err != nil {
		return "", err
	}
	digits := n.String()
	for len(digits) < s.cfg.CodeLength {
		digits = "0" + digits
	}
	return digits, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, phone, decision, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action:    string(action),
		PhoneHash: s.hasher.Hash(phone),
		Decision:  decision,
		Reason:    reason,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	}
}
