package guard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfitPassesBothThresholds(t *testing.T) {
	g := NewProfitGuard(5, 10)

	v := g.CheckUSD(20, 2000) // 100 bps margin
	assert.True(t, v.OK)
	assert.EqualValues(t, 100, v.Details["marginBps"])
}

func TestProfitBelowUSDThreshold(t *testing.T) {
	g := NewProfitGuard(5, 10)

	v := g.CheckUSD(4.99, 100)
	assert.False(t, v.OK)
	assert.Equal(t, ReasonProfitBelowTarget, v.Reason)
}

func TestProfitBelowBpsThreshold(t *testing.T) {
	g := NewProfitGuard(5, 10)

	// $50 profit on $1M notional is 0 bps after flooring
	v := g.CheckUSD(50, 1_000_000)
	assert.False(t, v.OK)
	assert.Equal(t, ReasonProfitBelowTarget, v.Reason)
	assert.EqualValues(t, 0, v.Details["marginBps"])
}

func TestProfitNonPositiveNotionalForcesZeroBps(t *testing.T) {
	g := NewProfitGuard(5, 10)

	v := g.CheckUSD(100, 0)
	assert.False(t, v.OK)
	assert.EqualValues(t, 0, v.Details["marginBps"])

	// A zero bps threshold lets a zero-notional trade through on the
	// absolute check alone
	relaxed := NewProfitGuard(5, 0)
	v = relaxed.CheckUSD(100, 0)
	assert.True(t, v.OK)
}

func TestProfitInvalidInputs(t *testing.T) {
	g := NewProfitGuard(5, 10)

	for _, c := range []struct{ profit, notional float64 }{
		{math.NaN(), 100},
		{100, math.NaN()},
		{math.Inf(1), 100},
		{100, math.Inf(-1)},
	} {
		v := g.CheckUSD(c.profit, c.notional)
		assert.False(t, v.OK)
		assert.Equal(t, ReasonInvalidInputs, v.Reason)
	}
}

func TestProfitMarginFloored(t *testing.T) {
	g := NewProfitGuard(0, 15)

	// 0.00159 ratio -> 15.9 bps -> floored to 15
	v := g.CheckUSD(1.59, 1000)
	assert.True(t, v.OK)
	assert.EqualValues(t, 15, v.Details["marginBps"])
}
