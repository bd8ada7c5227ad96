package services

import (
	"sync"
	"time"
)

// Verdict is the outcome of a single rate-limit check.
type Verdict struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type rateWindow struct {
	count    int
	windowAt time.Time // start of the current window
	expireAt time.Time
}

// RateLimiter is a process-local fixed-window request counter keyed by an
// arbitrary string (e.g. "scan:{participantID}", "register:{ip}").
// Not persisted — counters reset on restart, which is acceptable. Injected
// into services rather than ambient so a shared store can replace it in a
// multi-instance deployment.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*rateWindow)}
}

// Check counts one request against key and reports whether it is allowed
// within max requests per window.
func (rl *RateLimiter) Check(key string, max int, window time.Duration) Verdict {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.windowAt) >= window {
		w = &rateWindow{windowAt: now, expireAt: now.Add(window)}
		rl.windows[key] = w
	}

	w.count++
	resetAt := w.windowAt.Add(window)

	if w.count > max {
		return Verdict{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	return Verdict{Allowed: true, Remaining: max - w.count, ResetAt: resetAt}
}

// Evict drops windows that expired before now. Called periodically by the
// scheduler so the map does not grow unbounded.
func (rl *RateLimiter) Evict(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for key, w := range rl.windows {
		if now.After(w.expireAt) {
			delete(rl.windows, key)
			evicted++
		}
	}
	return evicted
}

// Size returns the number of live windows (for the eviction job's logging).
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}
