package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type counter struct {
	count   int64
	resetAt time.Time
}

type memoryStore struct {
	items       map[string]*counter
	mutex       sync.Mutex
	now         func() time.Time
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds a process-local counter store with a background sweeper.
func NewMemory(cfg MemoryConfig) Store {
	cleanup := time.Minute
	if cfg.GCInterval > 0 {
		cleanup = cfg.GCInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &memoryStore{
		items:       make(map[string]*counter),
		now:         now,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Hit(_ context.Context, key string, window time.Duration) (Hit, error) {
	if key == "" {
		return Hit{}, fmt.Errorf("rate limit key required")
	}
	if window <= 0 {
		return Hit{}, fmt.Errorf("window must be positive")
	}

	now := s.now()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c, ok := s.items[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(window)}
		s.items[key] = c
	}
	c.count++
	return Hit{Count: c.count, ResetIn: c.resetAt.Sub(now)}, nil
}

func (s *memoryStore) cleanupExpired() {
	now := s.now()
	s.mutex.Lock()
	for key, c := range s.items {
		if !now.Before(c.resetAt) {
			delete(s.items, key)
		}
	}
	s.mutex.Unlock()
}

func (s *memoryStore) len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.items)
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
