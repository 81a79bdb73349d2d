package store

import (
	"context"
	"sort"
	"sync"

	"tripmate/internal/registry/models"
	"tripmate/pkg/platform/sentinel"
	"tripmate/pkg/requestcontext"
)

// InMemoryStore keeps selfies in insertion order.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	selfies []models.Selfie
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

// Insert assigns an ID and, when unset, a creation time.
func (s *InMemoryStore) Insert(ctx context.Context, selfie *models.Selfie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	selfie.ID = s.nextID
	if selfie.CreatedAt.IsZero() {
		selfie.CreatedAt = requestcontext.Now(ctx)
	}
	stored := *selfie
	stored.Image = append([]byte(nil), selfie.Image...)
	s.selfies = append(s.selfies, stored)
	return nil
}

// LatestByPhone returns the newest selfie for phone; ties go to the later insert.
func (s *InMemoryStore) LatestByPhone(_ context.Context, phone string) (*models.Selfie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Selfie
	for i := range s.selfies {
		sf := &s.selfies[i]
		if sf.Phone != phone {
			continue
		}
		if latest == nil || !sf.CreatedAt.Before(latest.CreatedAt) {
			latest = sf
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	out := *latest
	out.Image = append([]byte(nil), latest.Image...)
	return &out, nil
}

// ListRegistrations returns every selfie, most recent first.
func (s *InMemoryStore) ListRegistrations(_ context.Context) ([]models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Registration, 0, len(s.selfies))
	for _, sf := range s.selfies {
		out = append(out, models.Registration{ID: sf.ID, Phone: sf.Phone, CreatedAt: sf.CreatedAt})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
