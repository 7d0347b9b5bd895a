package app

import (
	"sync"
	"time"

	"github.com/dkeye/Nearby/internal/core"
)

const (
	DefaultMessagesPerWindow = 30
	DefaultRateWindow        = time.Minute
	DefaultRateIdleTTL       = time.Hour
)

type rateWindow struct {
	count int
	start time.Time
}

// RateLimiter is a fixed window counter per connection.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[core.SessionID]*rateWindow
	limit   int
	window  time.Duration
	idle    time.Duration
	now     Clock
}

func NewRateLimiter(limit int, window, idle time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultMessagesPerWindow
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	if idle <= 0 {
		idle = DefaultRateIdleTTL
	}
	return &RateLimiter{
		windows: make(map[core.SessionID]*rateWindow),
		limit:   limit,
		window:  window,
		idle:    idle,
		now:     time.Now,
	}
}

func (rl *RateLimiter) WithClock(now Clock) *RateLimiter {
	rl.now = now
	return rl
}

func (rl *RateLimiter) Allow(sid core.SessionID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[sid]
	if !ok || now.Sub(w.start) > rl.window {
		rl.windows[sid] = &rateWindow{count: 1, start: now}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *RateLimiter) Forget(sid core.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.windows, sid)
}

// Sweep drops windows that started more than the idle TTL before now.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for sid, w := range rl.windows {
		if now.Sub(w.start) > rl.idle {
			delete(rl.windows, sid)
			n++
		}
	}
	return n
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}
