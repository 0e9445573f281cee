package guard

import (
	"sync"
	"time"

	"github.com/calldepth/trade-guard/pkg/types"
)

// CooldownGuard keeps an in-memory map from route key to the time the
// route last passed. The map only grows; it is bounded by the number
// of distinct routes seen in the process lifetime. Not durable across
// restarts and not safe across multiple processes sharing a key space.
type CooldownGuard struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	clock  Clock
}

// NewCooldownGuard creates a cooldown guard. A nil clock means the
// system clock.
func NewCooldownGuard(window time.Duration, clock Clock) *CooldownGuard {
	if clock == nil {
		clock = SystemClock
	}
	return &CooldownGuard{
		window: window,
		last:   make(map[string]time.Time),
		clock:  clock,
	}
}

// Check fails with the remaining wait when the route passed within the
// window; otherwise it records now and passes. A failed check never
// resets the timer.
func (g *CooldownGuard) Check(route string) types.Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if last, ok := g.last[route]; ok {
		elapsed := now.Sub(last)
		if elapsed < g.window {
			return types.Fail(ReasonCooldownActive, map[string]any{
				"route":       route,
				"msRemaining": (g.window - elapsed).Milliseconds(),
			})
		}
	}

	g.last[route] = now
	return types.Pass(map[string]any{"route": route})
}
