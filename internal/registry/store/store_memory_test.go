package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmate/internal/registry/models"
	"tripmate/pkg/platform/sentinel"
)

func TestInMemoryStore_LatestByPhone(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.LatestByPhone(ctx, "9876543210")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, s.Insert(ctx, &models.Selfie{Phone: "9876543210", Image: []byte("old"), CreatedAt: base}))
	require.NoError(t, s.Insert(ctx, &models.Selfie{Phone: "9876543210", Image: []byte("new"), CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.Insert(ctx, &models.Selfie{Phone: "1112223334", Image: []byte("other"), CreatedAt: base.Add(2 * time.Hour)}))

	sf, err := s.LatestByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), sf.Image)

	sf.Image[0] = 'X'
	again, err := s.LatestByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), again.Image, "callers get a copy")
}

func TestInMemoryStore_ListRegistrations(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, &models.Selfie{Phone: "a", CreatedAt: base}))
	require.NoError(t, s.Insert(ctx, &models.Selfie{Phone: "b", CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, s.Insert(ctx, &models.Selfie{Phone: "c", CreatedAt: base.Add(time.Hour)}))

	first, err := s.ListRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{first[0].Phone, first[1].Phone, first[2].Phone})

	second, err := s.ListRegistrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second, "listing is read-only and repeatable")
}

func TestInMemoryStore_EmptyListIsNotNil(t *testing.T) {
	out, err := NewInMemory().ListRegistrations(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
