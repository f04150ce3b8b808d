package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the single-replica counterpart of RedisLimiter: same
// fixed-window semantics, counters held in process memory.
type MemoryLimiter struct {
	max    int64
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*memWindow
}

type memWindow struct {
	start time.Time
	hits  int64
}

// NewMemoryLimiter creates an in-memory limiter allowing max hits per window.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     int64(max),
		window:  window,
		now:     time.Now,
		windows: make(map[string]*memWindow),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || !w.start.Equal(winStart) {
		w = &memWindow{start: winStart}
		l.windows[key] = w
		l.sweepLocked(winStart)
	}
	w.hits++

	remaining := l.max - w.hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     w.hits <= l.max,
		Remaining:   remaining,
		CurrentHits: w.hits,
	}
	if !res.Allowed {
		res.RetryAfter = winStart.Add(l.window).Sub(now)
	}
	return res, nil
}

// sweepLocked drops windows that already rolled over. Called with mu held,
// piggybacked on window creation so stale keys cannot accumulate unbounded.
func (l *MemoryLimiter) sweepLocked(current time.Time) {
	for k, w := range l.windows {
		if w.start.Before(current) {
			delete(l.windows, k)
		}
	}
}
