//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"tripmate/internal/platform/config"
	redisclient "tripmate/internal/platform/redis"
)

// RedisContainer wraps a testcontainers Redis instance. Client is built through
// the same constructor the server uses, so pool options and the startup ping
// are exercised too.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *redis.Client
}

// NewRedisContainer starts Redis and connects to it.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	rc, err := redisclient.New(ctx, config.RedisConfig{URL: url, PoolSize: 4, MinIdleConns: 1})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to redis: %v", err)
	}

	// No t.Cleanup: the manager shares this container across suites.
	return &RedisContainer{
		Container: container,
		URL:       url,
		Client:    rc.Client,
	}
}

// FlushAll drops every OTP record and rate limit window between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
