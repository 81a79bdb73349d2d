//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tripmate/internal/ratelimit/store/bucket"
	"tripmate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestLimitIsShared() {
	ctx := context.Background()
	replicaA := bucket.NewRedis(s.redis.Client)

	res, err := s.store.Allow(ctx, "rl:otp:10.0.0.1", 2, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
	res, err = replicaA.Allow(ctx, "rl:otp:10.0.0.1", 2, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Equal(0, res.Remaining)

	res, err = s.store.Allow(ctx, "rl:otp:10.0.0.1", 2, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Positive(res.RetryAfter)

	count, err := s.redis.Client.ZCard(ctx, "rl:otp:10.0.0.1").Result()
	s.Require().NoError(err)
	s.Equal(int64(2), count, "rejected request is not kept")
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "k", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, "k"))

	res, err := s.store.Allow(ctx, "k", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
