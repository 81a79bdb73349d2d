package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tripmate/internal/ratelimit/models"
)

// RedisStore shares sliding windows across replicas using one sorted set per
// key, scored by request time in milliseconds.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Allow trims the window, counts, and records the request in one pipeline.
// A request over the limit is recorded and then removed again, so rejected
// requests do not extend the window.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
		count = pipe.ZCard(ctx, key)
		oldest = pipe.ZRangeWithScores(ctx, key, 0, 0)
		pipe.PExpire(ctx, key, window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit pipeline: %w", err)
	}

	resetAt := now.Add(window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMilli(int64(zs[0].Score)).Add(window)
	}

	n := int(count.Val())
	if n <= limit {
		return &models.Result{Allowed: true, Limit: limit, Remaining: limit - n, ResetAt: resetAt}, nil
	}

	if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
		return nil, fmt.Errorf("rate limit rollback: %w", err)
	}
	return &models.Result{
		Allowed:    false,
		Limit:      limit,
		ResetAt:    resetAt,
		RetryAfter: retryAfter(resetAt.Sub(now)),
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
