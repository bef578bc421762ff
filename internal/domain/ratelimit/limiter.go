// Package ratelimit enforces fixed-window request quotas per client key.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"alejo-lab-api/internal/platform/logging"
)

// Window names.
const (
	WindowShort = "short"
	WindowDaily = "daily"
)

// Window is a named fixed window with a request ceiling.
type Window struct {
	Name     string
	Limit    int64
	Duration time.Duration
}

// DefaultWindows are 3 requests per minute and 10 per day.
func DefaultWindows() []Window {
	return []Window{
		{Name: WindowShort, Limit: 3, Duration: time.Minute},
		{Name: WindowDaily, Limit: 10, Duration: 24 * time.Hour},
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Window     string
	Limit      int64
	Count      int64
	RetryAfter time.Duration
}

// RetryAfterMs is the wait until the rejecting window resets.
func (d Decision) RetryAfterMs() int64 {
	if d.RetryAfter < 0 {
		return 0
	}
	return d.RetryAfter.Milliseconds()
}

// Limiter checks windows in order and stops at the first exceeded one,
// so later windows are not charged for a rejected request.
type Limiter struct {
	store   Store
	windows []Window
	logger  *logging.Logger
}

func NewLimiter(store Store, windows []Window, logger *logging.Logger) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limit store required")
	}
	if len(windows) == 0 {
		windows = DefaultWindows()
	}
	for _, w := range windows {
		if w.Name == "" || w.Limit <= 0 || w.Duration <= 0 {
			return nil, fmt.Errorf("invalid window %+v", w)
		}
	}
	return &Limiter{store: store, windows: windows, logger: logger}, nil
}

// Windows returns the configured windows in check order.
func (l *Limiter) Windows() []Window {
	out := make([]Window, len(l.windows))
	copy(out, l.windows)
	return out
}

// Window looks up a configured window by name.
func (l *Limiter) Window(name string) (Window, bool) {
	for _, w := range l.windows {
		if w.Name == name {
			return w, true
		}
	}
	return Window{}, false
}

// Check charges one request to key. Store failures are returned as errors.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	var last Decision
	for _, w := range l.windows {
		hit, err := l.store.Hit(ctx, w.Name+":"+key, w.Duration)
		if err != nil {
			return Decision{}, fmt.Errorf("rate limit %s window: %w", w.Name, err)
		}
		last = Decision{
			Allowed:    hit.Count <= w.Limit,
			Window:     w.Name,
			Limit:      w.Limit,
			Count:      hit.Count,
			RetryAfter: hit.ResetIn,
		}
		if !last.Allowed {
			l.logger.InfoTag("RATELIMIT", "request rejected",
				"key", key,
				"window", w.Name,
				"count", hit.Count,
				"retry_after_ms", last.RetryAfterMs(),
			)
			return last, nil
		}
	}
	return last, nil
}

// Close releases the underlying store.
func (l *Limiter) Close(ctx context.Context) error {
	return l.store.Close(ctx)
}
