package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments the window counter and starts its expiry on the first hit.
// It returns {count, pttl}.
var hitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a counter store shared by every instance using the same Redis.
func NewRedis(cfg *RedisConfig) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) Hit(ctx context.Context, key string, window time.Duration) (Hit, error) {
	if key == "" {
		return Hit{}, fmt.Errorf("rate limit key required")
	}
	if window <= 0 {
		return Hit{}, fmt.Errorf("window must be positive")
	}

	vals, err := hitScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Hit{}, fmt.Errorf("redis hit %s: %w", key, err)
	}
	if len(vals) != 2 {
		return Hit{}, fmt.Errorf("redis hit %s: unexpected reply %v", key, vals)
	}
	return Hit{Count: vals[0], ResetIn: time.Duration(vals[1]) * time.Millisecond}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
