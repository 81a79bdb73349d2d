package memory

import (
	"context"
	"sync"

	audit "tripmate/pkg/platform/audit"
)

const defaultCapacity = 10000

// InMemoryStore keeps the most recent audit events in a bounded ring. When full
// the oldest event is dropped.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []audit.Event
	head     int // next write position
	count    int
	capacity int
	dropped  int64
}

func NewInMemoryStore() *InMemoryStore {
	return NewInMemoryStoreWithCapacity(defaultCapacity)
}

func NewInMemoryStoreWithCapacity(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &InMemoryStore{events: make([]audit.Event, capacity), capacity: capacity}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == s.capacity {
		s.dropped++
	} else {
		s.count++
	}
	s.events[s.head] = event
	s.head = (s.head + 1) % s.capacity
	return nil
}

// ListRecent returns up to limit events, oldest first. limit <= 0 returns all.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]audit.Event, 0, n)
	start := (s.head - n + s.capacity) % s.capacity
	for i := 0; i < n; i++ {
		out = append(out, s.events[(start+i)%s.capacity])
	}
	return out, nil
}

// ListByAction returns retained events with the given action, oldest first.
func (s *InMemoryStore) ListByAction(ctx context.Context, action audit.AuditEvent) ([]audit.Event, error) {
	all, _ := s.ListRecent(ctx, 0)
	var out []audit.Event
	for _, e := range all {
		if e.Action == string(action) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Dropped returns the number of events evicted because the ring was full.
func (s *InMemoryStore) Dropped() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make([]audit.Event, s.capacity)
	s.head, s.count, s.dropped = 0, 0, 0
}
