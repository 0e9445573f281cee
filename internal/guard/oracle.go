package guard

import (
	"context"
	"errors"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/calldepth/trade-guard/internal/eth"
	"github.com/calldepth/trade-guard/pkg/types"
)

// nativeDecimals applies to the chain's base asset and is the fallback
// when an ERC-20 decimals read fails.
const nativeDecimals = 18

var (
	errBadDecimals = errors.New("unusable feed decimals")
	errBadRound    = errors.New("unusable round data")
)

// OracleProfitGuard values the profit and notional token legs in USD
// via price-feed lookups, then applies the direct dual-threshold
// check. All feed and decimals lookups for the two legs are issued
// concurrently.
type OracleProfitGuard struct {
	reader    *eth.Reader
	direct    *ProfitGuard
	staleness time.Duration
	clock     Clock
}

// NewOracleProfitGuard creates the oracle-derived profit guard.
func NewOracleProfitGuard(reader *eth.Reader, direct *ProfitGuard, staleness time.Duration, clock Clock) *OracleProfitGuard {
	if clock == nil {
		clock = SystemClock
	}
	return &OracleProfitGuard{
		reader:    reader,
		direct:    direct,
		staleness: staleness,
		clock:     clock,
	}
}

// Check resolves both legs to USD and runs the dual threshold. A
// missing or stale feed on either leg aborts with missingOrStaleFeed.
func (g *OracleProfitGuard) Check(ctx context.Context, profit, notional *types.TokenAmount, feeds map[common.Address]common.Address) types.Verdict {
	if profit == nil || notional == nil {
		return types.Fail(ReasonInvalidInputs, nil)
	}

	var (
		wg                     sync.WaitGroup
		profitUSD, notionalUSD float64
		profitOK, notionalOK   bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		profitUSD, profitOK = g.valueLeg(ctx, profit, feeds)
	}()
	go func() {
		defer wg.Done()
		notionalUSD, notionalOK = g.valueLeg(ctx, notional, feeds)
	}()
	wg.Wait()

	if !profitOK || !notionalOK {
		return types.Fail(ReasonMissingOrStaleFeed, map[string]any{
			"profitFeedOk":   profitOK,
			"notionalFeedOk": notionalOK,
		})
	}

	return g.direct.CheckUSD(profitUSD, notionalUSD)
}

// valueLeg converts one raw token amount to USD. The feed price and
// the token decimals are fetched concurrently.
func (g *OracleProfitGuard) valueLeg(ctx context.Context, leg *types.TokenAmount, feeds map[common.Address]common.Address) (float64, bool) {
	if leg.Amount == nil {
		return 0, false
	}
	feedAddr, ok := feeds[leg.Token]
	if !ok {
		return 0, false
	}

	var (
		wg       sync.WaitGroup
		price    float64
		priceOK  bool
		decimals int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		price, priceOK = g.feedPrice(ctx, feedAddr)
	}()
	go func() {
		defer wg.Done()
		decimals = g.tokenDecimals(ctx, leg)
	}()
	wg.Wait()

	if !priceOK {
		return 0, false
	}

	units := new(big.Float).SetInt(leg.Amount)
	units.Quo(units, big.NewFloat(math.Pow10(decimals)))
	value, _ := units.Float64()
	return value * price, true
}

// feedPrice resolves the USD unit price from an aggregator feed. The
// feed's decimals and latest round are fetched concurrently; the
// result is discarded when the answer is non-positive, the decimals
// are unusable, or the last update is older than the staleness window.
func (g *OracleProfitGuard) feedPrice(ctx context.Context, feed common.Address) (float64, bool) {
	var (
		wg            sync.WaitGroup
		feedDecimals  int64
		answer        *big.Int
		updatedAt     *big.Int
		decErr, rdErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outs, err := eth.Read(ctx, g.reader, "feedDecimals", 0, func(c context.Context, ep *eth.Endpoint) ([]any, error) {
			return callContract(c, ep, feedABI, feed, "decimals")
		})
		if err != nil {
			decErr = err
			return
		}
		d, ok := asBigInt(outs[0])
		if !ok {
			decErr = errBadDecimals
			return
		}
		feedDecimals = d.Int64()
	}()
	go func() {
		defer wg.Done()
		outs, err := eth.Read(ctx, g.reader, "feedLatestRound", 0, func(c context.Context, ep *eth.Endpoint) ([]any, error) {
			return callContract(c, ep, feedABI, feed, "latestRoundData")
		})
		if err != nil {
			rdErr = err
			return
		}
		if len(outs) < 4 {
			rdErr = errBadRound
			return
		}
		answer, _ = asBigInt(outs[1])
		updatedAt, _ = asBigInt(outs[3])
	}()
	wg.Wait()

	if decErr != nil || rdErr != nil {
		log.Debug().
			AnErr("decimals", decErr).
			AnErr("round", rdErr).
			Str("feed", feed.Hex()).
			Msg("Feed lookup failed")
		return 0, false
	}
	if feedDecimals < 0 || answer == nil || answer.Sign() <= 0 || updatedAt == nil {
		return 0, false
	}

	age := g.clock.Now().Unix() - updatedAt.Int64()
	if age > int64(g.staleness.Seconds()) {
		log.Debug().
			Str("feed", feed.Hex()).
			Int64("ageSec", age).
			Msg("Feed stale, discarding")
		return 0, false
	}

	raw := new(big.Float).SetInt(answer)
	raw.Quo(raw, big.NewFloat(math.Pow10(int(feedDecimals))))
	price, _ := raw.Float64()
	if !isFinite(price) || price <= 0 {
		return 0, false
	}
	return price, true
}

// tokenDecimals returns the token's decimals: 18 for the native asset,
// the on-chain value for contracts, 18 again when the read fails.
func (g *OracleProfitGuard) tokenDecimals(ctx context.Context, leg *types.TokenAmount) int {
	if leg.Native {
		return nativeDecimals
	}
	outs, err := eth.Read(ctx, g.reader, "tokenDecimals", 0, func(c context.Context, ep *eth.Endpoint) ([]any, error) {
		return callContract(c, ep, erc20ABI, leg.Token, "decimals")
	})
	if err != nil {
		return nativeDecimals
	}
	d, ok := asBigInt(outs[0])
	if !ok || d.Sign() < 0 {
		return nativeDecimals
	}
	return int(d.Int64())
}
