package guard

import (
	"math/big"

	"github.com/calldepth/trade-guard/pkg/types"
)

// SlippageGuard rejects trades whose gap between expected and minimum
// output exceeds a basis-point ceiling.
type SlippageGuard struct {
	CeilingBps int64
}

// NewSlippageGuard creates a slippage guard with the given ceiling.
func NewSlippageGuard(ceilingBps int64) *SlippageGuard {
	return &SlippageGuard{CeilingBps: ceilingBps}
}

// Check computes slippage in basis points and compares it against the
// ceiling. The computed bps and ceiling are reported on every path.
func (g *SlippageGuard) Check(expectedOut, minOut *big.Int) types.Verdict {
	details := map[string]any{"ceilingBps": g.CeilingBps}

	if expectedOut == nil || expectedOut.Sign() <= 0 {
		return types.Fail(ReasonExpectedOutNonPositive, details)
	}
	if minOut == nil {
		minOut = big.NewInt(0)
	}
	if minOut.Cmp(expectedOut) > 0 {
		return types.Fail(ReasonMinOutAboveExpected, details)
	}

	// floor((expectedOut-minOut)*10000/expectedOut)
	diff := new(big.Int).Sub(expectedOut, minOut)
	diff.Mul(diff, big.NewInt(10000))
	bps := diff.Div(diff, expectedOut).Int64()

	details["slippageBps"] = bps
	if bps > g.CeilingBps {
		return types.Fail(ReasonSlippageTooHigh, details)
	}
	return types.Pass(details)
}
