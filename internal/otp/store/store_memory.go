package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"tripmate/internal/otp/models"
	"tripmate/pkg/platform/sentinel"
)

// numShards spreads phones over independent locks so verification of one
// phone never waits on another.
const numShards = 64

type shard struct {
	mu      sync.Mutex
	records map[string]models.Record
}

// InMemoryStore keeps OTP records in a sharded map. All operations on one
// phone are serialized by that phone's shard lock.
type InMemoryStore struct {
	shards [numShards]*shard
}

func NewInMemory() *InMemoryStore {
	s := &InMemoryStore{}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]models.Record)}
	}
	return s
}

func (s *InMemoryStore) shardFor(phone string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return s.shards[h.Sum32()%numShards]
}

// Put stores rec, replacing any previous record for the phone.
func (s *InMemoryStore) Put(_ context.Context, rec models.Record) error {
	sh := s.shardFor(rec.Phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.records[rec.Phone] = rec
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, phone string) (*models.Record, error) {
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec, ok := sh.records[phone]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// Update runs fn with the phone's current record (nil when absent) while
// holding the shard lock, then applies the returned action.
func (s *InMemoryStore) Update(ctx context.Context, phone string, fn func(current *models.Record) (models.Action, error)) error {
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	var current *models.Record
	if rec, ok := sh.records[phone]; ok {
		current = &rec
	}
	action, err := fn(current)
	if err != nil {
		return err
	}
	if action == models.ActionDelete {
		delete(sh.records, phone)
	}
	return nil
}

// Sweep removes records older than retention at now and returns how many were
// removed. Callers pass a retention longer than the code TTL so expired codes
// stay visible to Verify for a while.
func (s *InMemoryStore) Sweep(now time.Time, retention time.Duration) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for phone, rec := range sh.records {
			if rec.IsExpired(now, retention) {
				delete(sh.records, phone)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (s *InMemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}
	return n
}
