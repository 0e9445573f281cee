package guard

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/eth"
	"github.com/calldepth/trade-guard/pkg/types"
)

// PoolReader snapshots pool state for both supported topologies. All
// fields of one snapshot are read from the same endpoint handle so the
// snapshot is internally consistent.
type PoolReader struct {
	reader *eth.Reader
	clock  Clock
}

// NewPoolReader creates a pool state reader.
func NewPoolReader(reader *eth.Reader, clock Clock) *PoolReader {
	if clock == nil {
		clock = SystemClock
	}
	return &PoolReader{reader: reader, clock: clock}
}

// Snapshot fetches the pool's state, issuing the per-field reads
// concurrently. Any failure yields nil rather than an error.
func (r *PoolReader) Snapshot(ctx context.Context, ref types.PoolRef) *types.PoolState {
	ep := r.reader.Pool().Active()

	switch ref.Variant {
	case types.PoolVariantConstantProduct:
		return r.snapshotPair(ctx, ep, ref.Address)
	case types.PoolVariantConcentrated:
		return r.snapshotConcentrated(ctx, ep, ref.Address)
	default:
		log.Debug().Str("variant", string(ref.Variant)).Msg("Unknown pool variant")
		return nil
	}
}

func (r *PoolReader) snapshotPair(ctx context.Context, ep *eth.Endpoint, pool common.Address) *types.PoolState {
	var (
		wg                               sync.WaitGroup
		token0, token1                   common.Address
		reserve0, reserve1               *big.Int
		token0Err, token1Err, reserveErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		token0, token0Err = r.readAddress(ctx, ep, pairABI, pool, "token0")
	}()
	go func() {
		defer wg.Done()
		token1, token1Err = r.readAddress(ctx, ep, pairABI, pool, "token1")
	}()
	go func() {
		defer wg.Done()
		outs, err := eth.ReadOn(ctx, r.reader, "getReserves", 0, ep, func(c context.Context, e *eth.Endpoint) ([]any, error) {
			return callContract(c, e, pairABI, pool, "getReserves")
		})
		if err != nil {
			reserveErr = err
			return
		}
		if len(outs) < 2 {
			reserveErr = errBadRound
			return
		}
		reserve0, _ = asBigInt(outs[0])
		reserve1, _ = asBigInt(outs[1])
	}()
	wg.Wait()

	if token0Err != nil || token1Err != nil || reserveErr != nil || reserve0 == nil || reserve1 == nil {
		log.Debug().Str("pool", pool.Hex()).Msg("Pair snapshot failed")
		return nil
	}

	return &types.PoolState{
		Variant:   types.PoolVariantConstantProduct,
		Address:   pool,
		Token0:    token0,
		Token1:    token1,
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		FetchedAt: r.clock.Now().UnixMilli(),
	}
}

func (r *PoolReader) snapshotConcentrated(ctx context.Context, ep *eth.Endpoint, pool common.Address) *types.PoolState {
	var (
		wg                                           sync.WaitGroup
		token0, token1                               common.Address
		sqrtPrice, liquidity                         *big.Int
		token0Err, token1Err, slot0Err, liquidityErr error
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		token0, token0Err = r.readAddress(ctx, ep, poolABI, pool, "token0")
	}()
	go func() {
		defer wg.Done()
		token1, token1Err = r.readAddress(ctx, ep, poolABI, pool, "token1")
	}()
	go func() {
		defer wg.Done()
		outs, err := eth.ReadOn(ctx, r.reader, "slot0", 0, ep, func(c context.Context, e *eth.Endpoint) ([]any, error) {
			return callContract(c, e, poolABI, pool, "slot0")
		})
		if err != nil {
			slot0Err = err
			return
		}
		sqrtPrice, _ = asBigInt(outs[0])
	}()
	go func() {
		defer wg.Done()
		outs, err := eth.ReadOn(ctx, r.reader, "liquidity", 0, ep, func(c context.Context, e *eth.Endpoint) ([]any, error) {
			return callContract(c, e, poolABI, pool, "liquidity")
		})
		if err != nil {
			liquidityErr = err
			return
		}
		liquidity, _ = asBigInt(outs[0])
	}()
	wg.Wait()

	if token0Err != nil || token1Err != nil || slot0Err != nil || liquidityErr != nil || sqrtPrice == nil || liquidity == nil {
		log.Debug().Str("pool", pool.Hex()).Msg("Pool snapshot failed")
		return nil
	}

	return &types.PoolState{
		Variant:      types.PoolVariantConcentrated,
		Address:      pool,
		Token0:       token0,
		Token1:       token1,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
		FetchedAt:    r.clock.Now().UnixMilli(),
	}
}

func (r *PoolReader) readAddress(ctx context.Context, ep *eth.Endpoint, a abi.ABI, pool common.Address, method string) (common.Address, error) {
	outs, err := eth.ReadOn(ctx, r.reader, method, 0, ep, func(c context.Context, e *eth.Endpoint) ([]any, error) {
		return callContract(c, e, a, pool, method)
	})
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := outs[0].(common.Address)
	if !ok {
		return common.Address{}, errBadRound
	}
	return addr, nil
}

// ReserveCap computes the maximum-safe trade size for a pool:
// min(desired, base*(100-slippagePercent)/100), with slippagePercent
// clamped to [0, 99]. Unusable inputs yield zero, never an error.
func ReserveCap(desired, base *big.Int, slippagePercent int64) *big.Int {
	if desired == nil || base == nil || desired.Sign() < 0 || base.Sign() < 0 {
		return big.NewInt(0)
	}
	if slippagePercent < 0 {
		slippagePercent = 0
	}
	if slippagePercent > 99 {
		slippagePercent = 99
	}

	safe := new(big.Int).Mul(base, big.NewInt(100-slippagePercent))
	safe.Div(safe, big.NewInt(100))
	if safe.Cmp(desired) > 0 {
		return new(big.Int).Set(desired)
	}
	return safe
}

// SafeTradeSize applies ReserveCap to a snapshot: the base quantity is
// the matching-side reserve for constant-product pools and the
// liquidity figure for concentrated pools. A nil snapshot yields zero.
func SafeTradeSize(state *types.PoolState, token common.Address, desired *big.Int, slippagePercent int64) *big.Int {
	if state == nil {
		return big.NewInt(0)
	}
	var base *big.Int
	switch state.Variant {
	case types.PoolVariantConstantProduct:
		switch token {
		case state.Token0:
			base = state.Reserve0
		case state.Token1:
			base = state.Reserve1
		}
	case types.PoolVariantConcentrated:
		base = state.Liquidity
	}
	return ReserveCap(desired, base, slippagePercent)
}
