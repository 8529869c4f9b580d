package app

import (
	"sync"
	"time"

	"github.com/avolkov/parlor/internal/core"
)

// Throttle is per-connection message admission: one accepted message per
// interval, a token bucket of capacity one. The last-accepted timestamp
// only advances on success, so rejected attempts do not push the window.
type Throttle struct {
	mu       sync.Mutex
	last     map[core.ConnID]time.Time
	interval time.Duration
	now      func() time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		last:     make(map[core.ConnID]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

func (t *Throttle) Allow(id core.ConnID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.last[id]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[id] = now
	return true
}

// Forget releases a departed connection's slot.
func (t *Throttle) Forget(id core.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, id)
}
