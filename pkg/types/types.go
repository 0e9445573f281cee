package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PoolVariant identifies the topology of a liquidity pool
type PoolVariant string

const (
	PoolVariantConstantProduct PoolVariant = "v2" // reserve-pair pools
	PoolVariantConcentrated    PoolVariant = "v3" // sqrtPrice/liquidity pools
)

// LoanSource identifies a flash-loan lending source
type LoanSource string

const (
	LoanSourceAave     LoanSource = "aave"
	LoanSourceBalancer LoanSource = "balancer"
)

// TokenAmount is a raw on-chain amount of a specific token.
// Native marks the chain's base asset (18 decimals, no contract).
type TokenAmount struct {
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
	Native bool           `json:"native,omitempty"`
}

// TxRequest carries the gas-relevant fields of the transaction a trade
// would submit. The fee override fields are decimal wei strings; when
// present they take precedence over fetched fee data.
type TxRequest struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value,omitempty"`
	Data  hexutil.Bytes  `json:"data,omitempty"`

	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

// FeeData is the fee quote for one gas check. Exactly one of the legacy
// or EIP-1559 shapes is authoritative per call.
type FeeData struct {
	GasPrice             *big.Int `json:"gasPrice,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
}

// BalanceRequirement asks the wallet-balance guard for a minimum
// holding. A zero Asset address means the native asset.
type BalanceRequirement struct {
	Asset  common.Address `json:"asset"`
	Amount *big.Int       `json:"amount"`
}

// FlashLoanCandidate is one potential flash-loan source pool.
type FlashLoanCandidate struct {
	Source LoanSource     `json:"source"`
	Token  common.Address `json:"token"`
	Pool   common.Address `json:"pool"`
}

// PoolRef points at a pool to snapshot after the required guards pass.
type PoolRef struct {
	Address common.Address `json:"address"`
	Variant PoolVariant    `json:"variant"`
}

// TradeIntent is the immutable input to one pipeline run.
type TradeIntent struct {
	Route string `json:"route"` // scopes cooldown state to a trade route

	ExpectedOut *big.Int `json:"expectedOut"`
	MinOut      *big.Int `json:"minOut"`

	Tx TxRequest `json:"tx"`

	// Direct USD profit figures; used when NotionalUSD > 0.
	ProfitUSD   float64 `json:"profitUsd,omitempty"`
	NotionalUSD float64 `json:"notionalUsd,omitempty"`

	// Raw token legs for the oracle-derived profit assessment.
	Profit   *TokenAmount `json:"profit,omitempty"`
	Notional *TokenAmount `json:"notional,omitempty"`

	// Token address -> price feed (aggregator) address.
	Feeds map[common.Address]common.Address `json:"feeds,omitempty"`

	Wallet      common.Address       `json:"wallet"`
	BalanceNeed *BalanceRequirement  `json:"balanceNeed,omitempty"`
	LoanAmount  *big.Int             `json:"loanAmount,omitempty"`
	Pools       []PoolRef            `json:"pools,omitempty"`
	Fallbacks   []common.Address     `json:"fallbacks,omitempty"`
	FlashLoans  []FlashLoanCandidate `json:"flashLoans,omitempty"`
}

// Verdict is the uniform outcome of every guard. A false OK always
// carries a machine-readable Reason.
type Verdict struct {
	OK      bool           `json:"ok"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Pass builds a passing verdict.
func Pass(details map[string]any) Verdict {
	return Verdict{OK: true, Details: details}
}

// Fail builds a failing verdict with a machine-readable reason.
func Fail(reason string, details map[string]any) Verdict {
	return Verdict{OK: false, Reason: reason, Details: details}
}

// PoolState is a read-only snapshot of one pool, timestamped at fetch
// time. The populated fields depend on the variant.
type PoolState struct {
	Variant PoolVariant    `json:"variant"`
	Address common.Address `json:"address"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`

	// Constant-product fields
	Reserve0 *big.Int `json:"reserve0,omitempty"`
	Reserve1 *big.Int `json:"reserve1,omitempty"`

	// Concentrated-liquidity fields
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96,omitempty"`
	Liquidity    *big.Int `json:"liquidity,omitempty"`

	FetchedAt int64 `json:"fetchedAt"` // unix millis
}

// StepTrace records one pipeline step relative to the run start.
type StepTrace struct {
	Step     string `json:"step"`
	OffsetMs int64  `json:"offsetMs"`
	OK       bool   `json:"ok"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// PipelineResult is the final verdict plus the per-step timing trace.
type PipelineResult struct {
	Verdict
	Trace []StepTrace `json:"trace"`
}

// ProfitSplit is the informational locked/leftover division of a USD
// profit figure. Locked and Leftover always sum to the profit rounded
// to the cent.
type ProfitSplit struct {
	LockedUSD   float64 `json:"lockedUsd"`
	LeftoverUSD float64 `json:"leftoverUsd"`
}
