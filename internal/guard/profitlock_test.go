package guard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitProfitNoDrift(t *testing.T) {
	for _, profit := range []float64{0.01, 0.03, 1.005, 12.34, 99.99, 1234.567, 1e6} {
		split := SplitProfit(profit, 0.75)

		total := math.Round(profit*100) / 100
		sum := math.Round((split.LockedUSD+split.LeftoverUSD)*100) / 100
		assert.InDelta(t, total, sum, 1e-9, "profit %v", profit)

		wantLocked := math.Round(math.Round(profit*100)*0.75) / 100
		assert.InDelta(t, wantLocked, split.LockedUSD, 1e-9, "profit %v", profit)
	}
}

func TestSplitProfitDefaultFraction(t *testing.T) {
	split := SplitProfit(100, 0)
	assert.InDelta(t, 75.0, split.LockedUSD, 1e-9)
	assert.InDelta(t, 25.0, split.LeftoverUSD, 1e-9)
}

func TestSplitProfitNonPositive(t *testing.T) {
	for _, profit := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		split := SplitProfit(profit, 0.75)
		assert.Zero(t, split.LockedUSD)
		assert.Zero(t, split.LeftoverUSD)
	}
}

func TestSplitProfitOddCents(t *testing.T) {
	// 3 cents at 75%: 2.25 rounds to 2 locked, 1 leftover
	split := SplitProfit(0.03, 0.75)
	assert.InDelta(t, 0.02, split.LockedUSD, 1e-9)
	assert.InDelta(t, 0.01, split.LeftoverUSD, 1e-9)
}
