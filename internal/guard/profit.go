package guard

import (
	"math"

	"github.com/calldepth/trade-guard/pkg/types"
)

// ProfitGuard applies a dual threshold to a USD profit figure: an
// absolute minimum and a minimum margin over the notional in basis
// points. Both must hold.
type ProfitGuard struct {
	MinUSD float64
	MinBps int64
}

// NewProfitGuard creates a direct-USD profit guard.
func NewProfitGuard(minUSD float64, minBps int64) *ProfitGuard {
	return &ProfitGuard{MinUSD: minUSD, MinBps: minBps}
}

// CheckUSD evaluates the dual threshold. A non-positive notional
// forces the margin to 0 bps, which fails unless the bps threshold is
// itself 0.
func (g *ProfitGuard) CheckUSD(profitUSD, notionalUSD float64) types.Verdict {
	if !isFinite(profitUSD) || !isFinite(notionalUSD) {
		return types.Fail(ReasonInvalidInputs, map[string]any{
			"profitUsd":   profitUSD,
			"notionalUsd": notionalUSD,
		})
	}

	var bps int64
	if notionalUSD > 0 {
		bps = int64(math.Floor(profitUSD / notionalUSD * 10000))
	}

	details := map[string]any{
		"profitUsd":    profitUSD,
		"notionalUsd":  notionalUSD,
		"marginBps":    bps,
		"minUsd":       g.MinUSD,
		"minMarginBps": g.MinBps,
	}

	if profitUSD < g.MinUSD || bps < g.MinBps {
		return types.Fail(ReasonProfitBelowTarget, details)
	}
	return types.Pass(details)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
