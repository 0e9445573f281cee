package guard

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/config"
	"github.com/calldepth/trade-guard/internal/eth"
	"github.com/calldepth/trade-guard/internal/metrics"
	"github.com/calldepth/trade-guard/internal/risklog"
	"github.com/calldepth/trade-guard/pkg/types"
)

// Pipeline composes the guards into one ordered, short-circuiting
// evaluation. Steps 1-7 are required and abort the run on first
// failure; the remaining steps are best-effort enrichment and never
// invalidate a passing verdict.
type Pipeline struct {
	cooldown     *CooldownGuard
	mev          *MEVGuard
	slippage     *SlippageGuard
	profit       *ProfitGuard
	oracleProfit *OracleProfitGuard
	gas          *GasGuard
	balance      *BalanceGuard
	loans        *FlashLoanGuard
	pools        *PoolReader
	fallback     *FallbackSelector
	lockFraction float64
	clock        Clock
}

// NewPipeline wires every guard from configuration. A nil clock means
// the system clock.
func NewPipeline(cfg *config.Config, reader *eth.Reader, store risklog.Store, clock Clock) *Pipeline {
	if clock == nil {
		clock = SystemClock
	}

	direct := NewProfitGuard(cfg.Risk.MinProfitUSD, cfg.Risk.MinProfitBps)

	static := make([]common.Address, 0, len(cfg.Loans.FallbackTokens))
	for _, raw := range cfg.Loans.FallbackTokens {
		static = append(static, common.HexToAddress(raw))
	}

	return &Pipeline{
		cooldown:     NewCooldownGuard(cfg.Risk.CooldownWindow, clock),
		mev:          NewMEVGuard(store, cfg.MEV.Lookback, clock),
		slippage:     NewSlippageGuard(cfg.Risk.MaxSlippageBps),
		profit:       direct,
		oracleProfit: NewOracleProfitGuard(reader, direct, cfg.Oracle.Staleness, clock),
		gas:          NewGasGuard(reader, cfg.Risk.HighGasGwei, cfg.Risk.GasLimitCeiling, cfg.RPC.GasTimeout, cfg.RPC.EstimateTimeout),
		balance:      NewBalanceGuard(reader),
		loans:        NewFlashLoanGuard(reader, cfg.Loans.AaveEnabled, cfg.Loans.BalancerEnabled),
		pools:        NewPoolReader(reader, clock),
		fallback:     NewFallbackSelector(reader, static, cfg.Loans.FallbackMinBalance),
		lockFraction: cfg.Risk.LockFraction,
		clock:        clock,
	}
}

// Run evaluates the intent against the full guard sequence. It never
// returns an error; every outcome is a verdict with a trace.
func (p *Pipeline) Run(ctx context.Context, intent *types.TradeIntent) types.PipelineResult {
	start := p.clock.Now()
	var trace []types.StepTrace

	record := func(step string, v types.Verdict, skipped bool) {
		trace = append(trace, types.StepTrace{
			Step:     step,
			OffsetMs: p.clock.Now().Sub(start).Milliseconds(),
			OK:       v.OK,
			Skipped:  skipped,
			Reason:   v.Reason,
		})
	}

	reject := func(v types.Verdict) types.PipelineResult {
		metrics.GuardRejections.WithLabelValues(v.Reason).Inc()
		metrics.PipelineRuns.WithLabelValues("rejected").Inc()
		log.Info().
			Str("route", intent.Route).
			Str("reason", v.Reason).
			Msg("Trade rejected")
		return types.PipelineResult{Verdict: v, Trace: trace}
	}

	// 1. Cooldown
	v := p.cooldown.Check(intent.Route)
	record("cooldown", v, false)
	if !v.OK {
		return reject(v)
	}

	// 2. MEV risk
	v = p.mev.Check(ctx)
	record("mevRisk", v, false)
	if !v.OK {
		return reject(v)
	}

	// 3. Slippage
	v = p.slippage.Check(intent.ExpectedOut, intent.MinOut)
	record("slippage", v, false)
	if !v.OK {
		return reject(v)
	}

	// 4. Profit (oracle-derived when token legs are supplied, direct
	// USD otherwise; both must hold when both are supplied)
	profitUSD := intent.ProfitUSD
	if intent.Profit != nil && intent.Notional != nil {
		v = p.oracleProfit.Check(ctx, intent.Profit, intent.Notional, intent.Feeds)
		if v.OK && profitUSD == 0 {
			if usd, ok := v.Details["profitUsd"].(float64); ok {
				profitUSD = usd
			}
		}
		if v.OK && intent.NotionalUSD > 0 {
			v = p.profit.CheckUSD(intent.ProfitUSD, intent.NotionalUSD)
		}
	} else {
		v = p.profit.CheckUSD(intent.ProfitUSD, intent.NotionalUSD)
	}
	record("profit", v, false)
	if !v.OK {
		return reject(v)
	}

	// 5. Gas
	v = p.gas.Check(ctx, intent.Tx)
	record("gas", v, false)
	if !v.OK {
		return reject(v)
	}

	// 6. Wallet balance (skipped when no requirement was supplied)
	if intent.BalanceNeed != nil {
		v = p.balance.Check(ctx, intent.Wallet, *intent.BalanceNeed)
		record("walletBalance", v, false)
		if !v.OK {
			return reject(v)
		}
	} else {
		record("walletBalance", types.Pass(nil), true)
	}

	// 7. Flash-loan availability (skipped when no candidates supplied)
	if len(intent.FlashLoans) > 0 {
		v = p.loans.Check(ctx, intent.LoanAmount, intent.FlashLoans)
		record("flashLoan", v, false)
		if !v.OK {
			return reject(v)
		}
	} else {
		record("flashLoan", types.Pass(nil), true)
	}

	// Required guards all passed. The remaining steps enrich the
	// verdict but cannot fail it.
	details := map[string]any{}

	// 8. Pool state snapshots (best-effort; failures yield nulls)
	if len(intent.Pools) > 0 {
		states := make([]*types.PoolState, len(intent.Pools))
		for i, ref := range intent.Pools {
			states[i] = p.pools.Snapshot(ctx, ref)
		}
		details["pools"] = states
	}
	record("poolState", types.Pass(nil), len(intent.Pools) == 0)

	// 9. Fallback-token selection (best-effort)
	if token, ok := p.fallback.Select(ctx, intent.Wallet, intent.Fallbacks); ok {
		details["fallbackToken"] = token.Hex()
	} else {
		details["fallbackToken"] = nil
	}
	record("fallbackToken", types.Pass(nil), false)

	// 10. Profit lock split (informational)
	details["profitSplit"] = SplitProfit(profitUSD, p.lockFraction)
	record("profitLock", types.Pass(nil), false)

	metrics.PipelineRuns.WithLabelValues("ok").Inc()
	log.Info().
		Str("route", intent.Route).
		Int("steps", len(trace)).
		Msg("Trade approved")

	return types.PipelineResult{
		Verdict: types.Pass(details),
		Trace:   trace,
	}
}
