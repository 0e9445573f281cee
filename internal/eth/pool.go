package eth

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/metrics"
)

// NodeClient is the read-only RPC surface the guards need. It is
// satisfied by *ethclient.Client and by test stubs.
type NodeClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
}

// Endpoint is one remote read endpoint in the pool.
type Endpoint struct {
	Name   string
	Client NodeClient
}

// Pool is an ordered set of endpoints with a single active pointer.
// Rotation is process-wide: it affects every subsequent caller, not
// just the caller that triggered it.
type Pool struct {
	mu        sync.Mutex
	endpoints []*Endpoint
	active    int
}

// NewPool creates a pool over the given endpoints. The first endpoint
// starts active.
func NewPool(endpoints ...*Endpoint) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("endpoint pool needs at least one endpoint")
	}
	return &Pool{endpoints: endpoints}, nil
}

// Dial connects to each RPC URL and builds a pool from the clients
// that answered.
func Dial(urls []string) (*Pool, error) {
	var endpoints []*Endpoint
	for _, url := range urls {
		client, err := ethclient.Dial(url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Failed to dial endpoint, skipping")
			continue
		}
		endpoints = append(endpoints, &Endpoint{Name: url, Client: client})
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no usable endpoints out of %d configured", len(urls))
	}
	return NewPool(endpoints...)
}

// Active returns the currently active endpoint.
func (p *Pool) Active() *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoints[p.active]
}

// Rotate advances the active pointer to the next endpoint and returns
// it, recording the reason.
func (p *Pool) Rotate(reason string) *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	from := p.endpoints[p.active].Name
	p.active = (p.active + 1) % len(p.endpoints)
	to := p.endpoints[p.active].Name

	metrics.EndpointRotations.Inc()
	log.Warn().
		Str("from", from).
		Str("to", to).
		Str("reason", reason).
		Msg("Rotated read endpoint")

	return p.endpoints[p.active]
}

// Size returns the number of endpoints in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}
