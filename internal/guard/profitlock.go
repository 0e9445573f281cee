package guard

import (
	"math"

	"github.com/calldepth/trade-guard/pkg/types"
)

// DefaultLockFraction is the share of profit set aside when no
// fraction is configured.
const DefaultLockFraction = 0.75

// SplitProfit divides a USD profit figure into locked and leftover
// parts. The arithmetic runs in integer cents so the two parts always
// sum to the profit rounded to the cent, with no floating-point drift.
func SplitProfit(profitUSD, lockFraction float64) types.ProfitSplit {
	if !isFinite(profitUSD) || profitUSD <= 0 {
		return types.ProfitSplit{}
	}
	if lockFraction <= 0 || lockFraction > 1 || !isFinite(lockFraction) {
		lockFraction = DefaultLockFraction
	}

	cents := math.Round(profitUSD * 100)
	lockedCents := math.Round(cents * lockFraction)
	leftoverCents := cents - lockedCents

	return types.ProfitSplit{
		LockedUSD:   lockedCents / 100,
		LeftoverUSD: leftoverCents / 100,
	}
}
