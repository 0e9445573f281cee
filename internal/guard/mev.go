package guard

import (
	"context"
	"time"

	"github.com/calldepth/trade-guard/internal/risklog"
	"github.com/calldepth/trade-guard/pkg/types"
)

// MEVGuard rejects trades while recent front-running risk events exist
// in the risk store. A store read failure counts as risk present.
type MEVGuard struct {
	store    risklog.Store
	lookback time.Duration
	clock    Clock
}

// NewMEVGuard creates a MEV risk guard over the given store.
func NewMEVGuard(store risklog.Store, lookback time.Duration, clock Clock) *MEVGuard {
	if clock == nil {
		clock = SystemClock
	}
	return &MEVGuard{store: store, lookback: lookback, clock: clock}
}

// Check queries the store for events inside the lookback window.
func (g *MEVGuard) Check(ctx context.Context) types.Verdict {
	entries, err := g.store.RecentSince(ctx, g.clock.Now(), g.lookback)
	if err != nil {
		return types.Fail(ReasonMEVRiskDetected, map[string]any{
			"readError": err.Error(),
		})
	}
	if len(entries) > 0 {
		return types.Fail(ReasonMEVRiskDetected, map[string]any{
			"recentEvents": len(entries),
			"lookbackMs":   g.lookback.Milliseconds(),
		})
	}
	return types.Pass(map[string]any{"recentEvents": 0})
}
