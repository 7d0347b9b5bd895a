package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

const DefaultCleanupInterval = 10 * time.Minute

// Janitor periodically sweeps empty rooms past their TTL and idle rate
// windows. It is started and stopped with the server.
type Janitor struct {
	rooms    *RoomManager
	limiter  *RateLimiter
	interval time.Duration
	now      Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

func NewJanitor(rooms *RoomManager, limiter *RateLimiter, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Janitor{
		rooms:    rooms,
		limiter:  limiter,
		interval: interval,
		now:      time.Now,
	}
}

func (j *Janitor) WithClock(now Clock) *Janitor {
	j.now = now
	return j
}

// Start runs the sweep loop until ctx is done or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Go(func() { j.loop(ctx) })
	log.Info().Str("module", "app.janitor").Dur("interval", j.interval).Msg("janitor started")
}

func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	j.wg.Wait()
	log.Info().Str("module", "app.janitor").Msg("janitor stopped")
}

func (j *Janitor) loop(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs one sweep and reports what it removed.
func (j *Janitor) RunOnce() (rooms int, windows int) {
	now := j.now()
	if j.rooms != nil {
		rooms = len(j.rooms.Sweep(now))
	}
	if j.limiter != nil {
		windows = j.limiter.Sweep(now)
	}
	log.Debug().Str("module", "app.janitor").Int("rooms", rooms).Int("rate_windows", windows).Msg("sweep done")
	return rooms, windows
}
