package service

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"tripmate/internal/checkin/models"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/audit"
	"tripmate/pkg/requestcontext"
)

// TxStores are the stores a check-in writes to inside one transaction.
type TxStores struct {
	Trips  TripStore
	Outbox audit.Store
}

// Tx provides the transactional boundary for trip issuance. Implementations
// wrap a database transaction or, in memory, a per-phone lock.
type Tx interface {
	RunInTx(ctx context.Context, fn func(stores TxStores) error) error
}

const (
	numTxShards      = 64
	defaultTxTimeout = 5 * time.Second
)

// ShardedTx serializes in-memory trip issuance per phone. fn writes to staged
// stores; trips reach the real store only after fn returns nil, so a failing
// fn leaves nothing behind. Staged audit events are appended after the trips
// and their failures are logged, never returned: the trip is already issued.
type ShardedTx struct {
	shards  [numTxShards]sync.Mutex
	trips   TripStore
	outbox  audit.Store
	logger  *slog.Logger
	timeout time.Duration
}

// TxOption configures a ShardedTx.
type TxOption func(*ShardedTx)

func WithTxLogger(logger *slog.Logger) TxOption {
	return func(t *ShardedTx) { t.logger = logger }
}

func NewShardedTx(trips TripStore, outbox audit.Store, opts ...TxOption) *ShardedTx {
	t := &ShardedTx{trips: trips, outbox: outbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *ShardedTx) RunInTx(ctx context.Context, fn func(stores TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	staged := &stagedWrites{}
	stores := TxStores{Trips: staged}
	if t.outbox != nil {
		stores.Outbox = staged
	}
	if err := fn(stores); err != nil {
		return err
	}
	return t.commit(ctx, staged)
}

func (t *ShardedTx) commit(ctx context.Context, staged *stagedWrites) error {
	for _, trip := range staged.trips {
		if err := t.trips.Insert(ctx, trip); err != nil {
			return err
		}
	}
	for _, event := range staged.events {
		if err := t.outbox.Append(ctx, event); err != nil {
			t.logger.WarnContext(ctx, "audit event for issued trip not recorded",
				"request_id", requestcontext.RequestID(ctx),
				"action", event.Action,
				"error", err,
			)
		}
	}
	return nil
}

// stagedWrites buffers one transaction's writes until commit.
type stagedWrites struct {
	trips  []*models.Trip
	events []audit.Event
}

func (s *stagedWrites) Insert(ctx context.Context, trip *models.Trip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.trips = append(s.trips, trip)
	return nil
}

func (s *stagedWrites) Append(_ context.Context, event audit.Event) error {
	s.events = append(s.events, event)
	return nil
}

func (t *ShardedTx) selectShard(ctx context.Context) int {
	phone, ok := ctx.Value(txPhoneKey{}).(string)
	if !ok || phone == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return int(h.Sum32() % numTxShards)
}

type txPhoneKey struct{}

// WithTxPhone tags ctx with the phone whose trip is being issued so the
// in-memory transaction locks only that phone's shard.
func WithTxPhone(ctx context.Context, phone string) context.Context {
	return context.WithValue(ctx, txPhoneKey{}, phone)
}
