package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	platformtesting "alejo-lab-api/internal/platform/testing"
)

func TestMemoryStoreFixedWindow(t *testing.T) {
	ctx := context.Background()
	clock := platformtesting.NewClock()
	store := NewMemory(MemoryConfig{GCInterval: time.Hour, Now: clock.Now})
	t.Cleanup(func() { _ = store.Close(ctx) })

	hit, err := store.Hit(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Hit error: %v", err)
	}
	if hit.Count != 1 || hit.ResetIn != time.Minute {
		t.Fatalf("unexpected first hit: %+v", hit)
	}

	clock.Advance(59 * time.Second)
	hit, _ = store.Hit(ctx, "k", time.Minute)
	if hit.Count != 2 || hit.ResetIn != time.Second {
		t.Fatalf("unexpected second hit: %+v", hit)
	}

	clock.Advance(time.Second)
	hit, _ = store.Hit(ctx, "k", time.Minute)
	if hit.Count != 1 || hit.ResetIn != time.Minute {
		t.Fatalf("expected fresh window at boundary, got %+v", hit)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	clock := platformtesting.NewClock()
	store := NewMemory(MemoryConfig{GCInterval: time.Hour, Now: clock.Now}).(*memoryStore)
	t.Cleanup(func() { _ = store.Close(ctx) })

	_, _ = store.Hit(ctx, "short", time.Second)
	_, _ = store.Hit(ctx, "long", time.Hour)

	clock.Advance(2 * time.Second)
	store.cleanupExpired()
	if got := store.len(); got != 1 {
		t.Fatalf("expected only the live window to survive, got %d", got)
	}
}

func TestMemoryStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(MemoryConfig{})
	t.Cleanup(func() { _ = store.Close(ctx) })

	if _, err := store.Hit(ctx, "", time.Second); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := store.Hit(ctx, "k", 0); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

func TestRedisStoreFixedWindow(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(&RedisConfig{Addr: mr.Addr(), Prefix: "rl:"})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })

	for i := int64(1); i <= 3; i++ {
		hit, err := store.Hit(ctx, "short:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("Hit error: %v", err)
		}
		if hit.Count != i {
			t.Fatalf("expected count %d, got %d", i, hit.Count)
		}
		if hit.ResetIn <= 0 || hit.ResetIn > time.Minute {
			t.Fatalf("unexpected reset: %v", hit.ResetIn)
		}
	}
	if !mr.Exists("rl:short:1.2.3.4") {
		t.Fatalf("expected prefixed key in redis")
	}

	mr.FastForward(time.Minute)
	hit, err := store.Hit(ctx, "short:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("Hit error: %v", err)
	}
	if hit.Count != 1 {
		t.Fatalf("expected counter reset after window, got %d", hit.Count)
	}
}

func TestRedisLimiterShortWindow(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewStore(StoreConfig{Driver: DriverRedis, Redis: &RedisConfig{Addr: mr.Addr()}})
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	limiter, err := NewLimiter(store, nil, nil)
	if err != nil {
		t.Fatalf("NewLimiter error: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close(ctx) })

	for i := 0; i < 3; i++ {
		if d, err := limiter.Check(ctx, "ip"); err != nil || !d.Allowed {
			t.Fatalf("request %d should pass: %+v %v", i+1, d, err)
		}
	}
	d, err := limiter.Check(ctx, "ip")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if d.Allowed || d.Window != WindowShort {
		t.Fatalf("expected short rejection, got %+v", d)
	}
}

func TestNewRedisFailures(t *testing.T) {
	if _, err := NewRedis(nil); err == nil {
		t.Fatalf("expected error for missing config")
	}
	if _, err := NewRedis(&RedisConfig{}); err == nil {
		t.Fatalf("expected error for missing address")
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedis(&RedisConfig{Addr: addr}); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestFactory(t *testing.T) {
	store, err := NewStore(StoreConfig{})
	if err != nil {
		t.Fatalf("NewStore memory: %v", err)
	}
	_ = store.Close(context.Background())

	if _, err := NewStore(StoreConfig{Driver: "unknown"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
	if _, err := NewStore(StoreConfig{Driver: DriverRedis}); err == nil {
		t.Fatalf("expected error for redis without config")
	}
}
