package app

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any)       {}
func (nopLogger) Info(context.Context, string, ...any)        {}
func (nopLogger) Warn(context.Context, string, ...any)        {}
func (nopLogger) Error(context.Context, string, ...any)       {}
func (nopLogger) Debugc(context.Context, int, string, ...any) {}
func (nopLogger) Infoc(context.Context, int, string, ...any)  {}
func (nopLogger) Warnc(context.Context, int, string, ...any)  {}
func (nopLogger) Errorc(context.Context, int, string, ...any) {}

var (
	usdc = asset.PolygonUSDC
	wpol = asset.PolygonWPOL
	link = asset.NewAsset(asset.ChainIDPolygon, common.HexToAddress("0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39"), "LINK", 18, asset.ClassVolatile)

	cpVenue = domain.Venue{
		ID:       "quickswap",
		Protocol: domain.ProtocolConstantProduct,
		Factory:  common.HexToAddress("0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32"),
		FeeBps:   30,
	}
	clVenue = domain.Venue{
		ID:       "uniswap_v3",
		Protocol: domain.ProtocolConcentratedLiquidity,
		Factory:  common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		FeeTiers: []uint32{3000, 500, 10000},
	}
	emptyVenue = domain.Venue{
		ID:       "empty",
		Protocol: domain.ProtocolConstantProduct,
		Factory:  common.HexToAddress("0x00000000000000000000000000000000000000ee"),
		FeeBps:   30,
	}
)

func units(n int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func pairKey(factory, a, b common.Address) string {
	x, y := a.Hex(), b.Hex()
	if x > y {
		x, y = y, x
	}
	return factory.Hex() + x + y
}

// fakeReader serves pools from memory and counts calls.
type fakeReader struct {
	mu       sync.Mutex
	calls    int
	err      error
	pairs    map[string]common.Address
	reserves map[common.Address]domain.PairReserves
	pools    map[string]common.Address // pairKey + fee
	states   map[common.Address]domain.PoolState
	amounts  []*big.Int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		pairs:    make(map[string]common.Address),
		reserves: make(map[common.Address]domain.PairReserves),
		pools:    make(map[string]common.Address),
		states:   make(map[common.Address]domain.PoolState),
	}
}

func (f *fakeReader) addPair(v domain.Venue, token, bridge *asset.Asset, tokenUnits, bridgeUnits int64) {
	pair := common.BigToAddress(big.NewInt(int64(len(f.pairs) + 1000)))
	f.pairs[pairKey(v.Factory, token.Address(), bridge.Address())] = pair
	f.reserves[pair] = domain.PairReserves{
		Token0:   token.Address(),
		Reserve0: units(tokenUnits, token.Decimals()),
		Reserve1: units(bridgeUnits, bridge.Decimals()),
	}
}

func (f *fakeReader) addPool(v domain.Venue, token, bridge *asset.Asset, fee uint32, st domain.PoolState) {
	pool := common.BigToAddress(big.NewInt(int64(len(f.pools) + 2000)))
	f.pools[pairKey(v.Factory, token.Address(), bridge.Address())+fmt.Sprint(fee)] = pool
	f.states[pool] = st
}

func (f *fakeReader) hit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeReader) PairFor(_ context.Context, factory, a, b common.Address) (common.Address, error) {
	if err := f.hit(); err != nil {
		return common.Address{}, err
	}
	return f.pairs[pairKey(factory, a, b)], nil
}

func (f *fakeReader) Reserves(_ context.Context, pair common.Address) (domain.PairReserves, error) {
	if err := f.hit(); err != nil {
		return domain.PairReserves{}, err
	}
	return f.reserves[pair], nil
}

func (f *fakeReader) PoolFor(_ context.Context, factory, a, b common.Address, fee uint32) (common.Address, error) {
	if err := f.hit(); err != nil {
		return common.Address{}, err
	}
	return f.pools[pairKey(factory, a, b)+fmt.Sprint(fee)], nil
}

func (f *fakeReader) PoolState(_ context.Context, pool common.Address) (domain.PoolState, error) {
	if err := f.hit(); err != nil {
		return domain.PoolState{}, err
	}
	return f.states[pool], nil
}

func (f *fakeReader) QuoteExactInputSingle(context.Context, common.Address, common.Address, common.Address, *big.Int, uint32) (*big.Int, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return nil, apperror.New(apperror.CodeContractCallFailed)
}

func (f *fakeReader) AmountsOut(context.Context, common.Address, *big.Int, []common.Address) ([]*big.Int, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	if f.amounts == nil {
		return nil, apperror.New(apperror.CodeContractCallFailed)
	}
	return f.amounts, nil
}

func newTestQuoter(t *testing.T, reader ChainReader, refVenue domain.Venue) *Quoter {
	t.Helper()

	valuer := NewValuer(reader, nil, decimal.NewFromInt(1))
	ref := NewReferencePrices(valuer, refVenue, usdc, wpol, decimal.RequireFromString("0.5"), time.Minute, nopLogger{})

	q, err := NewQuoter(QuoterConfig{
		Bridges:            []*asset.Asset{wpol, usdc},
		Settlement:         usdc,
		MinLiquidityUSD:    decimal.NewFromInt(1000),
		StableLiquidityUSD: decimal.NewFromInt(10_000_000),
		MultiHopEfficiency: decimal.RequireFromString("0.7"),
		CacheTTL:           time.Minute,
	}, reader, ref, nopLogger{})
	if err != nil {
		t.Fatalf("NewQuoter: %v", err)
	}
	t.Cleanup(func() {
		q.Close()
		ref.Close()
	})
	return q
}

var notional = decimal.NewFromInt(1000)

func TestQuoter_StableShortCircuit(t *testing.T) {
	reader := newFakeReader()
	q := newTestQuoter(t, reader, cpVenue)

	got := q.Quote(context.Background(), usdc, cpVenue, notional)

	if !got.Success {
		t.Fatalf("stable quote failed: %s", got.Reason)
	}
	if !got.PriceUSD.Equal(decimal.NewFromInt(1)) {
		t.Errorf("price = %s, want 1", got.PriceUSD)
	}
	if !got.LiquidityUSD.Equal(decimal.NewFromInt(10_000_000)) {
		t.Errorf("liquidity = %s, want 10000000", got.LiquidityUSD)
	}
	if reader.callCount() != 0 {
		t.Errorf("reader calls = %d, want 0", reader.callCount())
	}
}

func TestQuoter_ConstantProductDirect(t *testing.T) {
	reader := newFakeReader()
	reader.addPair(cpVenue, wpol, usdc, 1_000_000, 500_000)
	q := newTestQuoter(t, reader, cpVenue)

	got := q.Quote(context.Background(), wpol, cpVenue, notional)

	if !got.Success {
		t.Fatalf("quote failed: %s", got.Reason)
	}
	if !got.PriceUSD.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("price = %s, want 0.5", got.PriceUSD)
	}
	if !got.LiquidityUSD.Equal(decimal.NewFromInt(1_000_000)) {
		t.Errorf("liquidity = %s, want 1000000", got.LiquidityUSD)
	}
	if got.Route.String() != "WPOL->USDC" || got.Route.IsMultiHop() {
		t.Errorf("route = %s, want direct WPOL->USDC", got.Route)
	}
	if !got.FeeRate.Equal(decimal.RequireFromString("0.003")) {
		t.Errorf("fee rate = %s, want 0.003", got.FeeRate)
	}
	if !got.Slippage.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("slippage = %s, want 0.001", got.Slippage)
	}
	if got.Source != domain.SourceState {
		t.Errorf("source = %s, want state", got.Source)
	}
}

func TestQuoter_RouterSimulation(t *testing.T) {
	reader := newFakeReader()
	reader.addPair(cpVenue, wpol, usdc, 1_000_000, 500_000)
	// 2000 WPOL in, 995.006 USDC out: 0.2% short of the 0.5 pool price after the 0.3% fee
	reader.amounts = []*big.Int{units(2000, 18), big.NewInt(995_006_000)}

	venue := cpVenue
	venue.Router = common.HexToAddress("0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff")
	q := newTestQuoter(t, reader, venue)

	got := q.Quote(context.Background(), wpol, venue, notional)

	if got.Source != domain.SourceSimulation {
		t.Fatalf("source = %s, want simulation", got.Source)
	}
	if !got.PriceUSD.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("price = %s, want pool price 0.5", got.PriceUSD)
	}
	if !got.FeeRate.Equal(decimal.RequireFromString("0.003")) {
		t.Errorf("fee rate = %s, want 0.003", got.FeeRate)
	}
	if !got.Slippage.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("slippage = %s, want measured 0.002", got.Slippage)
	}
}

func TestQuoter_SimulationFeeIsNotChargedTwice(t *testing.T) {
	reader := newFakeReader()
	reader.addPair(cpVenue, wpol, usdc, 1_000_000, 500_000)
	// exactly the fee-adjusted pool price: no impact beyond the fee
	reader.amounts = []*big.Int{units(2000, 18), big.NewInt(997_000_000)}

	venue := cpVenue
	venue.Router = common.HexToAddress("0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff")
	q := newTestQuoter(t, reader, venue)

	got := q.Quote(context.Background(), wpol, venue, notional)

	if got.Source != domain.SourceSimulation {
		t.Fatalf("source = %s, want simulation", got.Source)
	}
	if !got.Slippage.IsZero() {
		t.Errorf("slippage = %s, want 0", got.Slippage)
	}
	if !got.PriceUSD.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("price = %s, want 0.5", got.PriceUSD)
	}
}

func TestQuoter_ConcentratedFeeTierFallback(t *testing.T) {
	reader := newFakeReader()
	// only the 0.05% pool exists; WPOL is token0, USDC token1
	// raw price 5e-13 USDC units per WPOL unit -> 0.5 USDC per WPOL
	sqrt := new(big.Int).Lsh(big.NewInt(1), 96)
	sqrt.Mul(sqrt, big.NewInt(707106781))
	sqrt.Quo(sqrt, big.NewInt(1_000_000_000_000_000))
	reader.addPool(clVenue, wpol, usdc, 500, domain.PoolState{
		Token0:       wpol.Address(),
		SqrtPriceX96: sqrt,
		Liquidity:    units(1, 18),
	})
	q := newTestQuoter(t, reader, clVenue)

	got := q.Quote(context.Background(), wpol, clVenue, notional)

	if !got.Success {
		t.Fatalf("quote failed: %s", got.Reason)
	}
	if got.FeeTier != 500 {
		t.Errorf("fee tier = %d, want 500", got.FeeTier)
	}
	if got.PriceUSD.Sub(decimal.RequireFromString("0.5")).Abs().GreaterThan(decimal.RequireFromString("0.0001")) {
		t.Errorf("price = %s, want ~0.5", got.PriceUSD)
	}
	if !got.FeeRate.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("fee rate = %s, want 0.0005", got.FeeRate)
	}
}

func TestQuoter_MultiHop(t *testing.T) {
	reader := newFakeReader()
	reader.addPair(cpVenue, link, wpol, 10_000, 300_000)
	reader.addPair(cpVenue, wpol, usdc, 1_000_000, 500_000)
	// reference venue has no pools, so WPOL has no reference price and
	// the direct LINK/WPOL leg cannot be valued on its own
	q := newTestQuoter(t, reader, emptyVenue)

	got := q.Quote(context.Background(), link, cpVenue, notional)

	if !got.Success {
		t.Fatalf("quote failed: %s", got.Reason)
	}
	if !got.Route.IsMultiHop() || got.Route.String() != "LINK->WPOL->USDC" {
		t.Errorf("route = %s, want LINK->WPOL->USDC", got.Route)
	}
	if !got.PriceUSD.Equal(decimal.NewFromInt(15)) {
		t.Errorf("price = %s, want 15", got.PriceUSD)
	}
	// thinner leg is LINK/WPOL at $300k, discounted by 0.7
	if !got.LiquidityUSD.Equal(decimal.NewFromInt(210_000)) {
		t.Errorf("liquidity = %s, want 210000", got.LiquidityUSD)
	}
	if !got.FeeRate.Equal(decimal.RequireFromString("0.006")) {
		t.Errorf("fee rate = %s, want 0.006", got.FeeRate)
	}
}

func TestQuoter_Failures(t *testing.T) {
	t.Run("no route", func(t *testing.T) {
		q := newTestQuoter(t, newFakeReader(), cpVenue)

		got := q.Quote(context.Background(), link, cpVenue, notional)

		assertFailed(t, got, "no route")
	})

	t.Run("below liquidity floor", func(t *testing.T) {
		reader := newFakeReader()
		reader.addPair(cpVenue, wpol, usdc, 400, 200) // $400 of depth
		q := newTestQuoter(t, reader, cpVenue)

		got := q.Quote(context.Background(), wpol, cpVenue, notional)

		assertFailed(t, got, "insufficient liquidity")
	})

	t.Run("pool exhausted is not cached", func(t *testing.T) {
		reader := newFakeReader()
		reader.err = apperror.New(apperror.CodeEndpointPoolExhausted)
		q := newTestQuoter(t, reader, cpVenue)

		first := q.Quote(context.Background(), wpol, cpVenue, notional)
		assertFailed(t, first, "endpoint pool")
		if !apperror.HasCode(first.Err, apperror.CodeEndpointPoolExhausted) {
			t.Errorf("err = %v, want pool exhausted", first.Err)
		}

		before := reader.callCount()
		q.Quote(context.Background(), wpol, cpVenue, notional)
		if reader.callCount() == before {
			t.Error("exhausted quote was served from cache")
		}
	})

	t.Run("failed rpc call degrades only the quote", func(t *testing.T) {
		reader := newFakeReader()
		reader.err = apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(apperror.New(apperror.CodeRPCCallFailed)))
		q := newTestQuoter(t, reader, cpVenue)

		first := q.Quote(context.Background(), wpol, cpVenue, notional)
		assertFailed(t, first, "no route")
		if systemic(context.Background(), first.Err) {
			t.Errorf("err = %v, a single call failure is not systemic", first.Err)
		}

		before := reader.callCount()
		q.Quote(context.Background(), wpol, cpVenue, notional)
		if reader.callCount() == before {
			t.Error("failed call was served from cache")
		}
	})
}

func assertFailed(t *testing.T, q domain.Quote, reason string) {
	t.Helper()
	if q.Success {
		t.Fatal("expected failed quote")
	}
	if !q.PriceUSD.IsZero() || !q.LiquidityUSD.IsZero() {
		t.Errorf("failed quote carries price %s liquidity %s", q.PriceUSD, q.LiquidityUSD)
	}
	if !strings.Contains(q.Reason, reason) {
		t.Errorf("reason = %q, want it to mention %q", q.Reason, reason)
	}
}

func TestQuoter_CachesByTokenVenueNotional(t *testing.T) {
	reader := newFakeReader()
	reader.addPair(cpVenue, wpol, usdc, 1_000_000, 500_000)
	q := newTestQuoter(t, reader, cpVenue)
	ctx := context.Background()

	q.Quote(ctx, wpol, cpVenue, notional)
	calls := reader.callCount()

	q.Quote(ctx, wpol, cpVenue, notional)
	if reader.callCount() != calls {
		t.Errorf("cached quote hit the reader: %d -> %d calls", calls, reader.callCount())
	}

	q.Quote(ctx, wpol, cpVenue, decimal.NewFromInt(5000))
	if reader.callCount() == calls {
		t.Error("different notional should miss the cache")
	}
}
