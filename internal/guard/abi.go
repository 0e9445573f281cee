package guard

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/calldepth/trade-guard/internal/eth"
)

const erc20ABIJSON = `[
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Chainlink-style aggregator: decimals plus the latest round.
const feedABIJSON = `[
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"latestRoundData","outputs":[
     {"internalType":"uint80","name":"roundId","type":"uint80"},
     {"internalType":"int256","name":"answer","type":"int256"},
     {"internalType":"uint256","name":"startedAt","type":"uint256"},
     {"internalType":"uint256","name":"updatedAt","type":"uint256"},
     {"internalType":"uint80","name":"answeredInRound","type":"uint80"}],
   "stateMutability":"view","type":"function"}
]`

// Constant-product pair: tokens plus reserves.
const pairABIJSON = `[
  {"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token1","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"getReserves","outputs":[
     {"internalType":"uint112","name":"reserve0","type":"uint112"},
     {"internalType":"uint112","name":"reserve1","type":"uint112"},
     {"internalType":"uint32","name":"blockTimestampLast","type":"uint32"}],
   "stateMutability":"view","type":"function"}
]`

// Concentrated-liquidity pool: tokens, slot0 and the liquidity figure.
const poolABIJSON = `[
  {"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token1","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"slot0","outputs":[
     {"internalType":"uint160","name":"sqrtPriceX96","type":"uint160"},
     {"internalType":"int24","name":"tick","type":"int24"},
     {"internalType":"uint16","name":"observationIndex","type":"uint16"},
     {"internalType":"uint16","name":"observationCardinality","type":"uint16"},
     {"internalType":"uint16","name":"observationCardinalityNext","type":"uint16"},
     {"internalType":"uint8","name":"feeProtocol","type":"uint8"},
     {"internalType":"bool","name":"unlocked","type":"bool"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[],"name":"liquidity","outputs":[{"internalType":"uint128","name":"","type":"uint128"}],"stateMutability":"view","type":"function"}
]`

var (
	erc20ABI = mustABI(erc20ABIJSON)
	feedABI  = mustABI(feedABIJSON)
	pairABI  = mustABI(pairABIJSON)
	poolABI  = mustABI(poolABIJSON)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// callContract packs, calls and unpacks a single view method against
// the given endpoint handle.
func callContract(ctx context.Context, ep *eth.Endpoint, a abi.ABI, contract common.Address, method string, args ...any) ([]any, error) {
	input, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := ep.Client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	outs, err := a.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("empty %s output", method)
	}
	return outs, nil
}

// asBigInt coerces an unpacked ABI value to *big.Int.
func asBigInt(v any) (*big.Int, bool) {
	switch x := v.(type) {
	case *big.Int:
		return x, true
	case uint8:
		return big.NewInt(int64(x)), true
	case uint32:
		return big.NewInt(int64(x)), true
	case uint64:
		return new(big.Int).SetUint64(x), true
	default:
		return nil, false
	}
}
