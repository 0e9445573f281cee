package guard

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/eth"
	"github.com/calldepth/trade-guard/pkg/types"
)

// maxFallbackCandidates bounds the fallback-token scan.
const maxFallbackCandidates = 5

// FlashLoanGuard checks that at least one enabled lending source has a
// candidate pool holding enough of the loan token.
type FlashLoanGuard struct {
	reader          *eth.Reader
	aaveEnabled     bool
	balancerEnabled bool
}

// NewFlashLoanGuard creates a flash-loan availability guard gated by
// the two source toggles.
func NewFlashLoanGuard(reader *eth.Reader, aaveEnabled, balancerEnabled bool) *FlashLoanGuard {
	return &FlashLoanGuard{
		reader:          reader,
		aaveEnabled:     aaveEnabled,
		balancerEnabled: balancerEnabled,
	}
}

// Check scans each enabled source's candidates in order, stopping at
// the first pool whose token balance covers the needed amount. Both
// sources' outcomes are reported regardless of the verdict. With both
// toggles off it fails without issuing any remote call.
func (g *FlashLoanGuard) Check(ctx context.Context, needed *big.Int, candidates []types.FlashLoanCandidate) types.Verdict {
	if !g.aaveEnabled && !g.balancerEnabled {
		return types.Fail(ReasonLoansDisabledInEnv, nil)
	}
	if needed == nil {
		needed = big.NewInt(0)
	}

	outcomes := map[string]any{}
	available := false
	for _, src := range []struct {
		source  types.LoanSource
		enabled bool
	}{
		{types.LoanSourceAave, g.aaveEnabled},
		{types.LoanSourceBalancer, g.balancerEnabled},
	} {
		if !src.enabled {
			outcomes[string(src.source)] = map[string]any{"enabled": false}
			continue
		}
		pool, ok := g.firstFunded(ctx, src.source, needed, candidates)
		outcome := map[string]any{"enabled": true, "available": ok}
		if ok {
			outcome["pool"] = pool.Hex()
			available = true
		}
		outcomes[string(src.source)] = outcome
	}

	details := map[string]any{"sources": outcomes, "needed": needed.String()}
	if !available {
		return types.Fail(ReasonNoLoanSourceAvailable, details)
	}
	return types.Pass(details)
}

// firstFunded returns the first candidate of the given source whose
// pool balance covers needed.
func (g *FlashLoanGuard) firstFunded(ctx context.Context, source types.LoanSource, needed *big.Int, candidates []types.FlashLoanCandidate) (common.Address, bool) {
	for _, c := range candidates {
		if c.Source != source {
			continue
		}
		balance := tokenBalance(ctx, g.reader, c.Token, c.Pool)
		if balance.Cmp(needed) >= 0 {
			return c.Pool, true
		}
	}
	return common.Address{}, false
}

// BalanceGuard checks that a wallet holds at least a required amount
// of an asset. A failed read counts as a zero balance.
type BalanceGuard struct {
	reader *eth.Reader
}

// NewBalanceGuard creates a wallet-balance guard.
func NewBalanceGuard(reader *eth.Reader) *BalanceGuard {
	return &BalanceGuard{reader: reader}
}

// Check reads the wallet's balance of the required asset. A zero
// asset address means the native asset.
func (g *BalanceGuard) Check(ctx context.Context, wallet common.Address, req types.BalanceRequirement) types.Verdict {
	required := req.Amount
	if required == nil {
		required = big.NewInt(0)
	}

	var balance *big.Int
	if req.Asset == (common.Address{}) {
		balance = nativeBalance(ctx, g.reader, wallet)
	} else {
		balance = tokenBalance(ctx, g.reader, req.Asset, wallet)
	}

	details := map[string]any{
		"asset":    req.Asset.Hex(),
		"balance":  balance.String(),
		"required": required.String(),
	}
	if balance.Cmp(required) < 0 {
		return types.Fail(ReasonInsufficientBalance, details)
	}
	return types.Pass(details)
}

// FallbackSelector picks the first token in a bounded candidate list
// whose wallet balance exceeds a minimum.
type FallbackSelector struct {
	reader     *eth.Reader
	static     []common.Address
	minBalance *big.Int
}

// NewFallbackSelector creates a selector with a static configured list
// used when the caller supplies no candidates.
func NewFallbackSelector(reader *eth.Reader, static []common.Address, minBalance *big.Int) *FallbackSelector {
	if minBalance == nil {
		minBalance = big.NewInt(0)
	}
	return &FallbackSelector{reader: reader, static: static, minBalance: minBalance}
}

// Select returns the first qualifying token, checking at most five
// candidates. The second return is false when none qualify or every
// read fails.
func (s *FallbackSelector) Select(ctx context.Context, wallet common.Address, candidates []common.Address) (common.Address, bool) {
	if len(candidates) == 0 {
		candidates = s.static
	}
	if len(candidates) > maxFallbackCandidates {
		candidates = candidates[:maxFallbackCandidates]
	}

	for _, token := range candidates {
		balance := tokenBalance(ctx, s.reader, token, wallet)
		if balance.Cmp(s.minBalance) > 0 {
			return token, true
		}
	}
	return common.Address{}, false
}

// tokenBalance reads an ERC-20 balance, returning zero on any failure.
func tokenBalance(ctx context.Context, reader *eth.Reader, token, holder common.Address) *big.Int {
	outs, err := eth.Read(ctx, reader, "balanceOf", 0, func(c context.Context, ep *eth.Endpoint) ([]any, error) {
		return callContract(c, ep, erc20ABI, token, "balanceOf", holder)
	})
	if err != nil {
		log.Debug().Err(err).Str("token", token.Hex()).Msg("Balance read failed, treating as zero")
		return big.NewInt(0)
	}
	balance, ok := asBigInt(outs[0])
	if !ok {
		return big.NewInt(0)
	}
	return balance
}

// nativeBalance reads the base-asset balance, returning zero on any
// failure.
func nativeBalance(ctx context.Context, reader *eth.Reader, account common.Address) *big.Int {
	balance, err := eth.Read(ctx, reader, "nativeBalance", 0, func(c context.Context, ep *eth.Endpoint) (*big.Int, error) {
		return ep.Client.BalanceAt(c, account, nil)
	})
	if err != nil || balance == nil {
		if err != nil {
			log.Debug().Err(err).Str("account", account.Hex()).Msg("Native balance read failed, treating as zero")
		}
		return big.NewInt(0)
	}
	return balance
}
