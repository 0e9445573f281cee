package guard

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calldepth/trade-guard/pkg/types"
)

func TestReserveCapNeverExceedsDesired(t *testing.T) {
	cases := []struct {
		desired, base   int64
		slippagePercent int64
	}{
		{100, 1000, 5},
		{1000, 100, 5},
		{100, 100, 0},
		{100, 100, 99},
		{1, 1_000_000, 50},
	}
	for _, c := range cases {
		got := ReserveCap(big.NewInt(c.desired), big.NewInt(c.base), c.slippagePercent)
		assert.LessOrEqual(t, got.Int64(), c.desired)

		clamped := c.slippagePercent
		if clamped < 0 {
			clamped = 0
		}
		if clamped > 99 {
			clamped = 99
		}
		assert.LessOrEqual(t, got.Int64(), c.base*(100-clamped)/100)
	}
}

func TestReserveCapClampsSlippage(t *testing.T) {
	// Below 0 clamps to 0: cap is the full base
	got := ReserveCap(big.NewInt(10_000), big.NewInt(1000), -5)
	assert.EqualValues(t, 1000, got.Int64())

	// Above 99 clamps to 99: 1% of base remains usable
	got = ReserveCap(big.NewInt(10_000), big.NewInt(1000), 150)
	assert.EqualValues(t, 10, got.Int64())
}

func TestReserveCapUnusableInputs(t *testing.T) {
	assert.Zero(t, ReserveCap(nil, big.NewInt(100), 5).Sign())
	assert.Zero(t, ReserveCap(big.NewInt(100), nil, 5).Sign())
	assert.Zero(t, ReserveCap(big.NewInt(-1), big.NewInt(100), 5).Sign())
}

func TestSafeTradeSizeMatchingReserveSide(t *testing.T) {
	state := &types.PoolState{
		Variant:  types.PoolVariantConstantProduct,
		Token0:   tokenA,
		Token1:   poolA,
		Reserve0: big.NewInt(1000),
		Reserve1: big.NewInt(4000),
	}

	got := SafeTradeSize(state, tokenA, big.NewInt(10_000), 10)
	assert.EqualValues(t, 900, got.Int64())

	got = SafeTradeSize(state, poolA, big.NewInt(10_000), 10)
	assert.EqualValues(t, 3600, got.Int64())
}

func TestSafeTradeSizeConcentratedUsesLiquidity(t *testing.T) {
	state := &types.PoolState{
		Variant:   types.PoolVariantConcentrated,
		Liquidity: big.NewInt(2000),
	}

	got := SafeTradeSize(state, tokenA, big.NewInt(10_000), 50)
	assert.EqualValues(t, 1000, got.Int64())
}

func TestSafeTradeSizeNilState(t *testing.T) {
	assert.Zero(t, SafeTradeSize(nil, tokenA, big.NewInt(100), 5).Sign())
}

func pairStub(t *testing.T) *stubClient {
	t.Helper()
	return &stubClient{
		results: map[string][]byte{
			selector(pairABI, "token0"):      packOutputs(t, pairABI, "token0", tokenA),
			selector(pairABI, "token1"):      packOutputs(t, pairABI, "token1", poolA),
			selector(pairABI, "getReserves"): packOutputs(t, pairABI, "getReserves", big.NewInt(1000), big.NewInt(4000), uint32(0)),
		},
	}
}

func TestSnapshotConstantProduct(t *testing.T) {
	client := pairStub(t)
	r := NewPoolReader(newStubReader(t, client), newFakeClock())

	state := r.Snapshot(context.Background(), types.PoolRef{Address: poolB, Variant: types.PoolVariantConstantProduct})
	require.NotNil(t, state)
	assert.Equal(t, tokenA, state.Token0)
	assert.EqualValues(t, 1000, state.Reserve0.Int64())
	assert.EqualValues(t, 4000, state.Reserve1.Int64())
	assert.NotZero(t, state.FetchedAt)
}

func TestSnapshotConcentrated(t *testing.T) {
	client := &stubClient{
		results: map[string][]byte{
			selector(poolABI, "token0"): packOutputs(t, poolABI, "token0", tokenA),
			selector(poolABI, "token1"): packOutputs(t, poolABI, "token1", poolA),
			selector(poolABI, "slot0"): packOutputs(t, poolABI, "slot0",
				big.NewInt(79228), big.NewInt(0), uint16(0), uint16(0), uint16(0), uint8(0), true),
			selector(poolABI, "liquidity"): packOutputs(t, poolABI, "liquidity", big.NewInt(500_000)),
		},
	}
	r := NewPoolReader(newStubReader(t, client), newFakeClock())

	state := r.Snapshot(context.Background(), types.PoolRef{Address: poolB, Variant: types.PoolVariantConcentrated})
	require.NotNil(t, state)
	assert.EqualValues(t, 79228, state.SqrtPriceX96.Int64())
	assert.EqualValues(t, 500_000, state.Liquidity.Int64())
}

func TestSnapshotFailureYieldsNil(t *testing.T) {
	client := &stubClient{callErr: errors.New("rpc down")}
	r := NewPoolReader(newStubReader(t, client), newFakeClock())

	state := r.Snapshot(context.Background(), types.PoolRef{Address: poolB, Variant: types.PoolVariantConstantProduct})
	assert.Nil(t, state)
}

func TestSnapshotUnknownVariant(t *testing.T) {
	r := NewPoolReader(newStubReader(t, &stubClient{}), newFakeClock())

	state := r.Snapshot(context.Background(), types.PoolRef{Address: common.Address{}, Variant: "v4"})
	assert.Nil(t, state)
}
