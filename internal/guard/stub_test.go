package guard

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/calldepth/trade-guard/internal/eth"
)

// stubClient is an in-memory NodeClient. Contract call results are
// keyed by method selector.
type stubClient struct {
	mu sync.Mutex

	baseFee  *big.Int
	tip      *big.Int
	gasPrice *big.Int

	estimate    uint64
	estimateErr error

	balance    *big.Int
	balanceErr error

	results map[string][]byte
	callErr error

	callCount     int
	estimateCount int
}

func (s *stubClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callCount++
	if s.callErr != nil {
		return nil, s.callErr
	}
	data, ok := s.results[hex.EncodeToString(msg.Data[:4])]
	if !ok {
		return nil, errors.New("no stubbed result for selector")
	}
	return data, nil
}

func (s *stubClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimateCount++
	return s.estimate, s.estimateErr
}

func (s *stubClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if s.gasPrice == nil {
		return nil, errors.New("no gas price")
	}
	return s.gasPrice, nil
}

func (s *stubClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if s.tip == nil {
		return nil, errors.New("no tip")
	}
	return s.tip, nil
}

func (s *stubClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return s.balance, s.balanceErr
}

func (s *stubClient) HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
	return &ethtypes.Header{Number: big.NewInt(1), BaseFee: s.baseFee}, nil
}

func (s *stubClient) contractCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubClient) estimateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimateCount
}

func newStubReader(t *testing.T, client *stubClient) *eth.Reader {
	t.Helper()
	pool, err := eth.NewPool(&eth.Endpoint{Name: "stub", Client: client})
	require.NoError(t, err)
	return eth.NewReader(pool, time.Second, nil)
}

func selector(a abi.ABI, method string) string {
	return hex.EncodeToString(a.Methods[method].ID)
}

func packOutputs(t *testing.T, a abi.ABI, method string, vals ...any) []byte {
	t.Helper()
	out, err := a.Methods[method].Outputs.Pack(vals...)
	require.NoError(t, err)
	return out
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
