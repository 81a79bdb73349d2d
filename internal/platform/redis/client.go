// Package redis builds the shared go-redis client used by the OTP store and
// the rate limiter when REDIS_URL is set.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tripmate/internal/platform/config"
)

// Client embeds *redis.Client so stores can take the plain go-redis type.
type Client struct {
	*redis.Client
}

// New parses cfg.URL, applies pool and timeout overrides, and pings once so a
// bad URL fails at startup instead of on the first OTP send.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	applyOverrides(opts, cfg)

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: c}, nil
}

func applyOverrides(opts *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}

// Health pings Redis for /health.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
