// Package diagnostics implements the throttled-dump helper used by the
// Submitter and Poller to avoid spamming logs every iteration.
package diagnostics

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttler rate-limits a keyed set of diagnostic emitters, one bucket per
// key (e.g. per monitor name), so unrelated monitors don't share a
// throttle budget. Adapted from scheduler.TokenBucketLimiter, narrowed
// from a generic admission limiter to the single Allow-per-key use this
// package needs.
type Throttler struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
}

// NewThrottler returns a Throttler allowing at most one emission per key
// every interval.
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(interval),
	}
}

// Allow reports whether a dump for key may be emitted now. Burst is fixed
// at 1: a throttled dump is a "have we said this recently" gate, not a
// rate of events.
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	limiter, ok := t.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(t.every, 1)
		t.limiters[key] = limiter
	}
	return limiter.Allow()
}
