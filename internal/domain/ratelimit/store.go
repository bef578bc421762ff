package ratelimit

import (
	"context"
	"time"
)

// Driver identifiers for the counter store.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Hit is the counter state right after an increment.
type Hit struct {
	Count   int64
	ResetIn time.Duration
}

// Store owns the per-key fixed-window counters.
// Hit must increment and report atomically for a given key.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (Hit, error)
	Close(ctx context.Context) error
}

// StoreConfig selects and tunes the counter store.
type StoreConfig struct {
	Driver string
	Memory *MemoryConfig
	Redis  *RedisConfig
}

type MemoryConfig struct {
	GCInterval time.Duration
	// Now overrides the clock; tests only.
	Now func() time.Time
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
