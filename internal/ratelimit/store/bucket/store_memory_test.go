package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SlidingWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewInMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := range 3 {
		res, err := s.Allow(ctx, "rl:otp:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := s.Allow(ctx, "rl:otp:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30, res.RetryAfter, "oldest request leaves the window 60s after it was made")

	other, err := s.Allow(ctx, "rl:otp:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(31 * time.Second)
	res, err = s.Allow(ctx, "rl:otp:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "first request slid out of the window")
}

func TestInMemoryStore_Reset(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	_, err := s.Allow(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	res, err := s.Allow(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, s.Reset(ctx, "k"))
	res, err = s.Allow(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
