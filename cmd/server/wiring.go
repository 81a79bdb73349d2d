package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tripmate/internal/biometric/extractor"
	checkinhandler "tripmate/internal/checkin/handler"
	checkinmetrics "tripmate/internal/checkin/metrics"
	checkinservice "tripmate/internal/checkin/service"
	checkinstore "tripmate/internal/checkin/store"
	"tripmate/internal/geofence"
	"tripmate/internal/otp/delivery"
	otphandler "tripmate/internal/otp/handler"
	otpmetrics "tripmate/internal/otp/metrics"
	otpservice "tripmate/internal/otp/service"
	otpstore "tripmate/internal/otp/store"
	"tripmate/internal/platform/config"
	"tripmate/internal/platform/metrics"
	"tripmate/internal/platform/middleware"
	"tripmate/internal/platform/postgres"
	redisclient "tripmate/internal/platform/redis"
	ratelimitmetrics "tripmate/internal/ratelimit/metrics"
	ratelimitmw "tripmate/internal/ratelimit/middleware"
	ratelimitmodels "tripmate/internal/ratelimit/models"
	"tripmate/internal/ratelimit/store/bucket"
	registryhandler "tripmate/internal/registry/handler"
	registryservice "tripmate/internal/registry/service"
	registrystore "tripmate/internal/registry/store"
	"tripmate/pkg/platform/audit"
	"tripmate/pkg/platform/audit/publisher"
	auditkafka "tripmate/pkg/platform/audit/store/kafka"
	auditmemory "tripmate/pkg/platform/audit/store/memory"
	auditpg "tripmate/pkg/platform/audit/store/postgres"
	"tripmate/pkg/platform/audit/worker"
	"tripmate/pkg/platform/circuit"
	"tripmate/pkg/platform/httputil"
)

const (
	requestTimeout      = 30 * time.Second
	auditBufferSize     = 1024
	outboxRelayInterval = 2 * time.Second
)

type app struct {
	router  http.Handler
	workers []func(ctx context.Context) error
	closers []func()
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build selects backends from configuration: Postgres and Redis when their
// URLs are set, in-memory stores otherwise.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
	}

	hasher, err := audit.NewPhoneHasher([]byte(cfg.Audit.PhoneHashKey))
	if err != nil {
		return nil, err
	}
	sink, err := buildAuditSink(cfg, a)
	if err != nil {
		return nil, err
	}
	pub := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(nil)),
		publisher.WithBreaker(circuit.New("audit-sink")),
		publisher.WithSampler(publisher.NewSampler(cfg.Audit.OperationsSampleRate)),
	)
	a.closers = append(a.closers, pub.Close)

	var rc *redisclient.Client
	if cfg.Redis.URL != "" {
		rc, err = redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
	}

	otpSvc := buildOTP(cfg, log, rc, pub, hasher, a)
	limiter := buildRateLimiter(cfg, log, rc)

	var (
		selfies registryservice.Store
		tx      checkinservice.Tx
	)
	if db != nil {
		selfies = registrystore.NewPostgres(db)
		tx = newCheckinPostgresTx(db)
		relay := worker.NewRelay(auditpg.New(db), sink, outboxRelayInterval, log)
		a.workers = append(a.workers, relay.Run)
	} else {
		log.WarnContext(ctx, "DATABASE_URL not set; selfies and trips are in memory and no selfie can be registered")
		selfies = registrystore.NewInMemory()
		tx = checkinservice.NewShardedTx(checkinstore.NewInMemory(), pub, checkinservice.WithTxLogger(log))
	}
	registry := registryservice.New(selfies,
		registryservice.WithLogger(log),
		registryservice.WithAuditor(pub, hasher),
	)

	ext := buildExtractor(cfg, log)
	checkinSvc := checkinservice.New(ext, registry, tx,
		checkinservice.Config{
			Checkpoint:          geofence.Point{Latitude: cfg.Checkin.CheckpointLat, Longitude: cfg.Checkin.CheckpointLon},
			MaxRadiusMeters:     cfg.Checkin.MaxRadiusMeters,
			SimilarityThreshold: cfg.Checkin.SimilarityThreshold,
			TripNumberMax:       cfg.Checkin.TripNumberMax,
		},
		checkinservice.WithLogger(log),
		checkinservice.WithMetrics(checkinmetrics.New(nil)),
		checkinservice.WithAuditor(pub, hasher),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata(cfg.Server.TrustedProxies))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.LatencyMiddleware(metrics.New(nil)))

	checks := map[string]func(context.Context) error{}
	if db != nil {
		checks["database"] = db.PingContext
	}
	if rc != nil {
		checks["redis"] = rc.Health
	}
	if sidecar, ok := ext.(*extractor.Client); ok {
		checks["embedding"] = sidecar.Health
	}
	r.Get("/health", healthHandler(checks))
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(limiter.RateLimit(ratelimitmodels.ClassOTP))
		otphandler.New(otpSvc, log).Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(limiter.RateLimit(ratelimitmodels.ClassCheckin))
		checkinhandler.New(checkinSvc, log).Register(r)
	})
	registryhandler.New(registry, cfg.Server.AdminAPIKey, log).Register(r)

	a.router = r
	return a, nil
}

func buildAuditSink(cfg config.Config, a *app) (audit.Store, error) {
	if len(cfg.Audit.KafkaBrokers) == 0 {
		return auditmemory.NewInMemoryStore(), nil
	}
	ks, err := auditkafka.Dial(cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ks.Close)
	return ks, nil
}

func buildOTP(cfg config.Config, log *slog.Logger, rc *redisclient.Client, pub *publisher.Publisher, hasher *audit.PhoneHasher, a *app) *otpservice.Service {
	m := otpmetrics.New(nil)

	var store otpservice.Store
	if rc != nil {
		store = otpstore.NewRedis(rc.Client, cfg.OTP.Retention)
	} else {
		mem := otpstore.NewInMemory()
		store = mem
		a.workers = append(a.workers, func(ctx context.Context) error {
			return otpservice.RunSweeper(ctx, mem, cfg.OTP.Retention, cfg.OTP.SweepInterval, m, log)
		})
	}

	opts := []otpservice.Option{
		otpservice.WithLogger(log),
		otpservice.WithMetrics(m),
		otpservice.WithAuditor(pub, hasher),
	}
	sender, err := buildSender(cfg)
	if err != nil {
		log.Warn("otp delivery disabled", "channel", cfg.OTP.Channel, "error", err)
	} else {
		opts = append(opts, otpservice.WithSender(sender))
	}

	return otpservice.New(store, otpservice.Config{
		TTL:        cfg.OTP.TTL,
		CodeLength: cfg.OTP.CodeLength,
		Channel:    cfg.OTP.Channel,
	}, opts...)
}

func buildRateLimiter(cfg config.Config, log *slog.Logger, rc *redisclient.Client) *ratelimitmw.Middleware {
	var store ratelimitmw.Store = bucket.NewInMemory()
	if rc != nil {
		store = bucket.NewRedis(rc.Client)
	}
	return ratelimitmw.New(store, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(nil)),
		ratelimitmw.WithLimit(ratelimitmodels.ClassOTP, ratelimitmodels.Limit{Requests: cfg.RateLimit.OTPPerMinute, Window: time.Minute}),
		ratelimitmw.WithLimit(ratelimitmodels.ClassCheckin, ratelimitmodels.Limit{Requests: cfg.RateLimit.CheckinPerMinute, Window: time.Minute}),
	)
}

func buildSender(cfg config.Config) (otpservice.Sender, error) {
	switch cfg.OTP.Channel {
	case "sms":
		return delivery.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	case "telegram":
		return delivery.NewTelegram(cfg.Telegram.APIURL, cfg.Telegram.BotToken, nil)
	default:
		return nil, fmt.Errorf("unknown channel %q", cfg.OTP.Channel)
	}
}

func buildExtractor(cfg config.Config, log *slog.Logger) checkinservice.Extractor {
	if cfg.Embedding.URL == "" {
		log.Warn("EMBEDDING_URL not set, check-ins will fail until it is configured")
		return extractor.Unconfigured{}
	}
	client, err := extractor.New(extractor.Config{
		BaseURL: cfg.Embedding.URL,
		Timeout: cfg.Embedding.Timeout,
		Logger:  log,
		Breaker: circuit.New("embedding-sidecar", circuit.WithCooldown(10*time.Second)),
	})
	if err != nil {
		log.Warn("embedding client misconfigured", "error", err)
		return extractor.Unconfigured{}
	}
	return client
}

// healthHandler reports "degraded" when a configured dependency does not
// answer within two seconds. In-memory mode has no checks and is always ok.
func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		body := map[string]string{"status": "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				body[name] = "unreachable"
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
