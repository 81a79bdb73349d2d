// Package service runs the check-in decision: geofence, live face, stored
// face, similarity, then trip issuance. Every call yields exactly one
// models.Result; rejections are results, not errors.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tripmate/internal/biometric"
	"tripmate/internal/checkin/metrics"
	"tripmate/internal/checkin/models"
	"tripmate/internal/geofence"
	registrymodels "tripmate/internal/registry/models"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/audit"
	"tripmate/pkg/platform/audit/publisher"
	"tripmate/pkg/requestcontext"
)

// Extractor turns image bytes into a face embedding. A nil or empty embedding
// with a nil error means no face was found.
type Extractor interface {
	Extract(ctx context.Context, img []byte) (biometric.Embedding, error)
}

// Selfies looks up the reference selfie for a phone. A phone without one
// yields an error carrying CodeNotFound.
type Selfies interface {
	LatestSelfie(ctx context.Context, phone string) (*registrymodels.Selfie, error)
}

// TripStore persists issued trips.
type TripStore interface {
	Insert(ctx context.Context, trip *models.Trip) error
}

// Config holds the fixed decision parameters.
type Config struct {
	Checkpoint          geofence.Point
	MaxRadiusMeters     float64
	SimilarityThreshold float64
	TripNumberMax       int
}

const DefaultTripNumberMax = 20

type Service struct {
	extractor  Extractor
	selfies    Selfies
	tx         Tx
	fence      geofence.Fence
	threshold  float64
	tripMax    int
	tripNumber func(n int) int
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	auditor    audit.Emitter
	hasher     *audit.PhoneHasher
}

type Option func(*Service)

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

// WithTripNumbers overrides the trip number source. fn(n) must return a value
// in [0, n).
func WithTripNumbers(fn func(n int) int) Option {
	return func(s *Service) { s.tripNumber = fn }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func New(extractor Extractor, selfies Selfies, tx Tx, cfg Config, opts ...Option) *Service {
	if cfg.TripNumberMax < 1 {
		cfg.TripNumberMax = DefaultTripNumberMax
	}
	s := &Service{
		extractor:  extractor,
		selfies:    selfies,
		tx:         tx,
		fence:      geofence.Fence{Checkpoint: cfg.Checkpoint, MaxMeters: cfg.MaxRadiusMeters},
		threshold:  cfg.SimilarityThreshold,
		tripMax:    cfg.TripNumberMax,
		tripNumber: rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("tripmate/checkin")
	}
	return s
}

// CheckIn decides one attempt. The caller has already verified the OTP.
func (s *Service) CheckIn(ctx context.Context, req models.Request) (result models.Result) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "checkin")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncPanics()
			s.logger.ErrorContext(ctx, "panic during check-in",
				"request_id", requestcontext.RequestID(ctx),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			result = models.Failure()
			span.SetStatus(codes.Error, "panic")
		}
		span.SetAttributes(attribute.String("checkin.result", string(result.Kind)))
		s.metrics.IncResult(string(result.Kind))
		s.metrics.ObserveDuration(time.Since(start))
		s.emitResult(ctx, req.Phone, result)
	}()

	result, err := s.decide(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check-in failed")
		s.logger.ErrorContext(ctx, "check-in failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return models.Failure()
	}
	return result
}

func (s *Service) decide(ctx context.Context, req models.Request) (models.Result, error) {
	point := geofence.Point{Latitude: req.Latitude, Longitude: req.Longitude}
	if !s.checkGeofence(ctx, point) {
		return models.LocationInvalid(), nil
	}

	live, err := s.extract(ctx, "live", req.Selfie)
	if err != nil {
		return models.Result{}, fmt.Errorf("extract live embedding: %w", err)
	}
	if len(live) == 0 {
		return models.FaceMismatch(models.ReasonNoLiveFace), nil
	}

	selfie, err := s.selfies.LatestSelfie(ctx, req.Phone)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.FaceMismatch(models.ReasonNoStoredSelfie), nil
		}
		return models.Result{}, fmt.Errorf("load stored selfie: %w", err)
	}

	stored, err := s.extract(ctx, "stored", selfie.Image)
	if err != nil {
		return models.Result{}, fmt.Errorf("extract stored embedding: %w", err)
	}
	if len(stored) == 0 {
		return models.FaceMismatch(models.ReasonNoStoredFace), nil
	}

	verdict, err := biometric.Match(live, stored, s.threshold)
	if err != nil {
		return models.Result{}, fmt.Errorf("compare embeddings: %w", err)
	}
	s.metrics.ObserveSimilarity(verdict.Similarity)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Float64("checkin.similarity", verdict.Similarity))
	if !verdict.Accepted {
		return models.FaceMismatch(models.ReasonBelowThreshold), nil
	}

	trip, err := s.issueTrip(ctx, req.Phone)
	if err != nil {
		return models.Result{}, err
	}
	return models.Success(req.Phone, trip.TripNumber), nil
}

func (s *Service) checkGeofence(ctx context.Context, point geofence.Point) bool {
	_, span := s.tracer.Start(ctx, "checkin.geofence")
	defer span.End()
	distance := geofence.Distance(point, s.fence.Checkpoint)
	span.SetAttributes(attribute.Float64("geofence.distance_m", distance))
	return s.fence.Contains(point)
}

func (s *Service) extract(ctx context.Context, which string, img []byte) (biometric.Embedding, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.extract", trace.WithAttributes(attribute.String("selfie", which)))
	defer span.End()
	start := time.Now()
	emb, err := s.extractor.Extract(ctx, img)
	s.metrics.ObserveExtraction(time.Since(start))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("face.found", len(emb) > 0))
	return emb, nil
}

// issueTrip inserts the trip and its audit record in one transaction. The
// trip is returned only once the transaction has committed.
func (s *Service) issueTrip(ctx context.Context, phone string) (*models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.issue_trip")
	defer span.End()

	trip := &models.Trip{
		Phone:       phone,
		TripNumber:  s.tripNumber(s.tripMax) + 1,
		CheckinTime: requestcontext.Now(ctx),
	}
	err := s.tx.RunInTx(WithTxPhone(ctx, phone), func(stores TxStores) error {
		if err := stores.Trips.Insert(ctx, trip); err != nil {
			return err
		}
		if stores.Outbox == nil {
			return nil
		}
		return stores.Outbox.Append(ctx, publisher.Enrich(ctx, audit.Event{
			Action:     string(audit.EventCheckinSucceeded),
			PhoneHash:  s.hasher.Hash(phone),
			Decision:   string(models.KindSuccess),
			TripNumber: trip.TripNumber,
		}))
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue trip: %w", err)
	}
	span.SetAttributes(attribute.Int("trip.number", trip.TripNumber))
	return trip, nil
}

// emitResult records rejections and failures. Successes are written to the outbox
// inside the trip transaction.
func (s *Service) emitResult(ctx context.Context, phone string, result models.Result) {
	if s.auditor == nil || result.Succeeded() {
		return
	}
	action := audit.EventCheckinRejected
	if result.Kind == models.KindError {
		action = audit.EventCheckinFailed
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Action:    string(action),
		PhoneHash: s.hasher.Hash(phone),
		Decision:  string(result.Kind),
		Reason:    result.Message,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
