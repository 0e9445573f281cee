package guard

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/eth"
	"github.com/calldepth/trade-guard/pkg/types"
)

// GasGuard rejects transactions whose fee exceeds a wei ceiling or
// whose estimated gas consumption exceeds a limit ceiling. Fee data is
// fetched over one consistent endpoint handle; caller-supplied fee
// overrides in the TxRequest take precedence over fetched values.
type GasGuard struct {
	reader          *eth.Reader
	maxFeeWei       *big.Int
	gasLimitCeiling uint64
	gasTimeout      time.Duration
	estimateTimeout time.Duration
}

// NewGasGuard creates a gas guard. highGasGwei is the fee ceiling in
// gwei, applied to whichever fee field the model uses.
func NewGasGuard(reader *eth.Reader, highGasGwei int64, gasLimitCeiling uint64, gasTimeout, estimateTimeout time.Duration) *GasGuard {
	return &GasGuard{
		reader:          reader,
		maxFeeWei:       new(big.Int).Mul(big.NewInt(highGasGwei), big.NewInt(1e9)),
		gasLimitCeiling: gasLimitCeiling,
		gasTimeout:      gasTimeout,
		estimateTimeout: estimateTimeout,
	}
}

// Check fetches fee data, applies overrides, enforces the fee ceiling
// for the applicable model, then estimates gas for the transaction.
// The estimation call is skipped when the fee is already unacceptable.
func (g *GasGuard) Check(ctx context.Context, tx types.TxRequest) types.Verdict {
	verdict := g.resolveFee(ctx, tx)
	if !verdict.OK {
		return verdict
	}
	details := verdict.Details

	limit, err := eth.Read(ctx, g.reader, "estimateGas", g.estimateTimeout, func(c context.Context, ep *eth.Endpoint) (uint64, error) {
		msg := ethereum.CallMsg{From: tx.From, To: &tx.To, Value: tx.Value, Data: tx.Data}
		return ep.Client.EstimateGas(c, msg)
	})
	if err != nil || limit == 0 {
		// A zero estimate means the node could not simulate the call.
		if err != nil {
			details["estimateError"] = err.Error()
		}
		return types.Fail(ReasonGasEstimationFailed, details)
	}
	if limit > g.gasLimitCeiling {
		details["gasLimit"] = limit
		details["gasLimitCeiling"] = g.gasLimitCeiling
		return types.Fail(ReasonGasLimitTooHigh, details)
	}

	details["gasLimit"] = limit
	return types.Pass(details)
}

// resolveFee merges fetched fee data with overrides and enforces the
// wei ceiling. The returned details carry whichever fee fields the
// applicable model used.
func (g *GasGuard) resolveFee(ctx context.Context, tx types.TxRequest) types.Verdict {
	fee, err := g.fetchFeeData(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Fee data fetch failed, relying on overrides")
		fee = &types.FeeData{}
	}

	// Overrides take precedence over fetched values.
	if tx.MaxFeePerGas != "" || tx.MaxPriorityFeePerGas != "" {
		maxFee, ok := parseWei(tx.MaxFeePerGas)
		if !ok {
			return types.Fail(ReasonMaxFeeCastError, map[string]any{"maxFeePerGas": tx.MaxFeePerGas})
		}
		tip, ok := parseWei(tx.MaxPriorityFeePerGas)
		if !ok {
			return types.Fail(ReasonMaxFeeCastError, map[string]any{"maxPriorityFeePerGas": tx.MaxPriorityFeePerGas})
		}
		if maxFee != nil {
			fee.MaxFeePerGas = maxFee
		}
		if tip != nil {
			fee.MaxPriorityFeePerGas = tip
		}
	}
	if tx.GasPrice != "" {
		gasPrice, ok := parseWei(tx.GasPrice)
		if !ok {
			return types.Fail(ReasonGasPriceCastError, map[string]any{"gasPrice": tx.GasPrice})
		}
		fee.GasPrice = gasPrice
	}

	// EIP-1559 when both components are present, else legacy.
	switch {
	case fee.MaxFeePerGas != nil && fee.MaxPriorityFeePerGas != nil:
		details := map[string]any{
			"maxFeePerGas":         fee.MaxFeePerGas.String(),
			"maxPriorityFeePerGas": fee.MaxPriorityFeePerGas.String(),
			"feeCeilingWei":        g.maxFeeWei.String(),
		}
		if fee.MaxFeePerGas.Cmp(g.maxFeeWei) > 0 {
			return types.Fail(ReasonMaxFeePerGasTooHigh, details)
		}
		return types.Pass(details)

	case fee.GasPrice != nil:
		details := map[string]any{
			"gasPrice":      fee.GasPrice.String(),
			"feeCeilingWei": g.maxFeeWei.String(),
		}
		if fee.GasPrice.Cmp(g.maxFeeWei) > 0 {
			return types.Fail(ReasonGasPriceTooHigh, details)
		}
		return types.Pass(details)

	default:
		return types.Fail(ReasonNoGasPriceAndNo1559, nil)
	}
}

// fetchFeeData reads the fee quote from a single endpoint handle so
// the base fee and tip come from the same node.
func (g *GasGuard) fetchFeeData(ctx context.Context) (*types.FeeData, error) {
	return eth.Read(ctx, g.reader, "feeData", g.gasTimeout, func(c context.Context, ep *eth.Endpoint) (*types.FeeData, error) {
		header, err := ep.Client.HeaderByNumber(c, nil)
		if err != nil {
			return nil, err
		}
		if header.BaseFee != nil {
			tip, err := ep.Client.SuggestGasTipCap(c)
			if err != nil {
				return nil, err
			}
			maxFee := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
			maxFee.Add(maxFee, tip)
			return &types.FeeData{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}, nil
		}
		gasPrice, err := ep.Client.SuggestGasPrice(c)
		if err != nil {
			return nil, err
		}
		return &types.FeeData{GasPrice: gasPrice}, nil
	})
}

// parseWei parses a decimal wei string. Empty means "not supplied";
// anything unparseable is a cast failure.
func parseWei(raw string) (*big.Int, bool) {
	if raw == "" {
		return nil, true
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}
