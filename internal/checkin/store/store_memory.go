package store

import (
	"context"
	"sync"

	"tripmate/internal/checkin/models"
	"tripmate/pkg/requestcontext"
)

// InMemoryStore keeps issued trips in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	trips  []models.Trip
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(ctx context.Context, trip *models.Trip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	trip.ID = s.nextID
	if trip.CheckinTime.IsZero() {
		trip.CheckinTime = requestcontext.Now(ctx)
	}
	s.trips = append(s.trips, *trip)
	return nil
}

// ListByPhone returns phone's trips, oldest first.
func (s *InMemoryStore) ListByPhone(_ context.Context, phone string) ([]models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Trip{}
	for _, t := range s.trips {
		if t.Phone == phone {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trips)
}
