// Package publisher fans audit events out to a Store, synchronously or through
// a bounded buffer drained by a background goroutine.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"tripmate/pkg/platform/audit"
	"tripmate/pkg/platform/circuit"
	"tripmate/pkg/requestcontext"
)

// ErrBufferFull is returned by Emit in async mode when the buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher enriches events with request metadata and hands them to a store.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	sampler *Sampler
	breaker *circuit.Breaker

	buffer int
	inbox  chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking, queueing up to size events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) { p.buffer = size }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithSampler drops a fraction of operations-category events.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) { p.sampler = s }
}

// WithBreaker stops persistence attempts while the store is failing.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) { p.breaker = b }
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.buffer > 0 {
		p.inbox = make(chan audit.Event, p.buffer)
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records event. Missing ID, timestamp and request metadata are filled
// from ctx. In async mode persistence errors are logged, not returned.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = Enrich(ctx, event)
	if p.sampler != nil && !p.sampler.Keep(event) {
		p.metrics.IncSampled()
		return nil
	}

	if p.inbox == nil {
		return p.persist(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.IncBufferDropped()
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
		return ErrBufferFull
	}
}

// Append lets a Publisher stand in where an audit.Store is expected.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	return p.Emit(ctx, event)
}

// ListRecent proxies to the store when it supports listing.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	lister, ok := p.store.(interface {
		ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
	})
	if !ok {
		return nil, errors.New("audit store does not support listing")
	}
	return lister.ListRecent(ctx, limit)
}

// Close drains buffered events and stops the background goroutine.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.persist(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"request_id", event.RequestID,
				"error", err,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if p.breaker != nil && !p.breaker.Allow() {
		p.metrics.IncCircuitBreakerDropped()
		return nil
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if p.breaker != nil {
			_, change := p.breaker.RecordFailure()
			if change.Opened {
				p.metrics.SetCircuitBreakerState(true)
				p.logger.WarnContext(ctx, "audit store circuit opened")
			}
		}
		return err
	}
	if p.breaker != nil {
		if _, change := p.breaker.RecordSuccess(); change.Closed {
			p.metrics.SetCircuitBreakerState(false)
			p.logger.InfoContext(ctx, "audit store circuit closed")
		}
	}
	p.metrics.IncTracked()
	return nil
}

func Enrich(ctx context.Context, event audit.Event) audit.Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = audit.DeviceSummary(requestcontext.UserAgent(ctx))
	}
	return event
}
