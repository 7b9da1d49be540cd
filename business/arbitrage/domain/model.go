package domain

import (
	"math"
	"math/big"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

// ModelParams holds the heuristic constants of the cost and timing model.
type ModelParams struct {
	BlockTime             time.Duration
	Confirmations         int
	GasEstimationOverhead time.Duration
	NetworkPropagation    time.Duration
	RPCRoundTrip          time.Duration
	VenueProcessing       time.Duration
	MultiHopTimeFactor    float64
	CongestionTimeFactor  float64
	CongestedHoursUTC     []int

	GasUnitsDirect       uint64
	GasUnitsMultiHop     uint64
	FallbackGasPriceGwei float64
	FallbackNativeUSD    decimal.Decimal
	AncillaryCostUSD     decimal.Decimal

	MinConfidence    float64
	MinProfitUSD     decimal.Decimal
	MinROIPercent    decimal.Decimal
	ExecuteProfitUSD decimal.Decimal
	ImmediateUSD     decimal.Decimal
}

// DefaultModelParams returns the defaults for a two-second block chain.
func DefaultModelParams() ModelParams {
	return ModelParams{
		BlockTime:             2 * time.Second,
		Confirmations:         2,
		GasEstimationOverhead: 300 * time.Millisecond,
		NetworkPropagation:    500 * time.Millisecond,
		RPCRoundTrip:          300 * time.Millisecond,
		VenueProcessing:       200 * time.Millisecond,
		MultiHopTimeFactor:    1.4,
		CongestionTimeFactor:  1.3,
		CongestedHoursUTC:     []int{13, 14, 15, 16, 17},

		GasUnitsDirect:       150_000,
		GasUnitsMultiHop:     240_000,
		FallbackGasPriceGwei: 50,
		FallbackNativeUSD:    decimal.RequireFromString("0.5"),
		AncillaryCostUSD:     decimal.RequireFromString("0.25"),

		MinConfidence:    0.4,
		MinProfitUSD:     decimal.NewFromInt(3),
		MinROIPercent:    decimal.RequireFromString("0.1"),
		ExecuteProfitUSD: decimal.NewFromInt(10),
		ImmediateUSD:     decimal.NewFromInt(25),
	}
}

// TokenProfile carries the per-token behaviour used by the model. Zero
// overrides fall back to the class defaults.
type TokenProfile struct {
	Class       asset.Class
	Reliability float64
	Volatility  float64
}

// MarketConditions are the live inputs shared by every evaluation of a cycle.
// A nil GasPrice or zero NativeUSD selects the static fallbacks.
type MarketConditions struct {
	GasPrice    *big.Int
	NativeUSD   decimal.Decimal
	BlockNumber uint64
	Now         time.Time
}

// Draft is a raw two-venue spread before scoring.
type Draft struct {
	Token    *asset.Asset
	Profile  TokenProfile
	Buy      pricingDomain.Quote
	Sell     pricingDomain.Quote
	Notional decimal.Decimal
}

// Model turns drafts into scored opportunities. It holds no mutable state.
type Model struct {
	params ModelParams
}

// NewModel creates a Model.
func NewModel(params ModelParams) *Model {
	return &Model{params: params}
}

// Params returns the model constants.
func (m *Model) Params() ModelParams {
	return m.params
}

var (
	hundred = decimal.NewFromInt(100)
	gweiWei = decimal.NewFromInt(1_000_000_000)
)

// Evaluate scores a draft. It never fails: missing live data is replaced by
// static fallbacks.
func (m *Model) Evaluate(d Draft, mc MarketConditions) Opportunity {
	now := mc.Now
	if now.IsZero() {
		now = time.Now()
	}

	spread := pricingDomain.CalculateSpread(d.Buy.PriceUSD, d.Sell.PriceUSD)
	gross := spread.GrossProfit(d.Notional)
	multiHop := d.Buy.Route.IsMultiHop() || d.Sell.Route.IsMultiHop()
	minLiquidity := decimal.Min(d.Buy.LiquidityUSD, d.Sell.LiquidityUSD)
	bps := spread.BasisPoints.InexactFloat64()

	execTime := m.executionTime(multiHop, now)
	window := m.viabilityWindow(bps, d.Profile, minLiquidity.InexactFloat64())
	rate := decayRate(bps, d.Profile.Class)
	remaining := decimal.NewFromFloat(math.Exp(-rate * execTime.Seconds()))

	costs := newCostBreakdown(
		m.gasCost(multiHop, mc),
		d.Notional.Mul(d.Buy.FeeRate.Add(d.Sell.FeeRate)),
		d.Notional.Mul(d.Buy.Slippage.Add(d.Sell.Slippage)),
		m.params.AncillaryCostUSD,
	)

	adjusted := gross.Mul(remaining).Sub(costs.Total)
	if adjusted.IsNegative() {
		adjusted = decimal.Zero
	}

	roi := decimal.Zero
	if d.Notional.IsPositive() {
		roi = adjusted.Div(d.Notional).Mul(hundred)
	}

	confidence := confidence(execTime, window, bps, minLiquidity.InexactFloat64(), d.Profile, multiHop)
	viable := m.viable(confidence, adjusted, roi)

	return Opportunity{
		Token:          d.Token,
		Buy:            d.Buy,
		Sell:           d.Sell,
		Notional:       d.Notional,
		Spread:         spread,
		GrossProfit:    gross,
		AdjustedProfit: adjusted,
		ROIPercent:     roi,
		Costs:          costs,
		Timing: Timing{
			ExecutionTime: execTime,
			Window:        window,
			DecayRate:     rate,
			Remaining:     remaining,
			Deadline:      now.Add(window),
		},
		Confidence:     confidence,
		Viable:         viable,
		Recommendation: m.recommend(viable, confidence, adjusted),
		BlockNumber:    mc.BlockNumber,
		DetectedAt:     now,
	}
}

func (m *Model) executionTime(multiHop bool, now time.Time) time.Duration {
	p := m.params
	confirm := 2 * p.BlockTime * time.Duration(p.Confirmations)
	total := float64(confirm + p.GasEstimationOverhead + p.NetworkPropagation + p.RPCRoundTrip + p.VenueProcessing)

	if multiHop {
		total *= p.MultiHopTimeFactor
	}
	if slices.Contains(p.CongestedHoursUTC, now.UTC().Hour()) {
		total *= p.CongestionTimeFactor
	}
	return time.Duration(total)
}

func (m *Model) viabilityWindow(bps float64, profile TokenProfile, minLiquidityUSD float64) time.Duration {
	var base time.Duration
	switch {
	case bps >= 100:
		base = 10 * time.Second
	case bps >= 30:
		base = 20 * time.Second
	default:
		base = 30 * time.Second
	}

	return time.Duration(float64(base) * volatilityFactor(profile) * liquidityWindowFactor(minLiquidityUSD))
}

// volatilityFactor stretches the window for slow-moving tokens.
func volatilityFactor(p TokenProfile) float64 {
	if p.Volatility > 0 {
		return p.Volatility
	}
	switch p.Class {
	case asset.ClassStable:
		return 1.5
	case asset.ClassWrappedNative:
		return 1.0
	default:
		return 0.7
	}
}

func liquidityWindowFactor(usd float64) float64 {
	switch {
	case usd < 10_000:
		return 0.6
	case usd < 50_000:
		return 0.8
	default:
		return 1.0
	}
}

func decayRate(bps float64, class asset.Class) float64 {
	var rate float64
	switch class {
	case asset.ClassStable:
		rate = 0.01
	case asset.ClassWrappedNative:
		rate = 0.02
	default:
		rate = 0.03
	}

	switch {
	case bps >= 100:
		rate *= 1.5
	case bps >= 50:
		rate *= 1.2
	}
	return rate
}

func (m *Model) gasCost(multiHop bool, mc MarketConditions) GasCost {
	units := m.params.GasUnitsDirect
	if multiHop {
		units = m.params.GasUnitsMultiHop
	}

	fallback := false
	price := mc.GasPrice
	if price == nil || price.Sign() <= 0 {
		price = decimal.NewFromFloat(m.params.FallbackGasPriceGwei).Mul(gweiWei).BigInt()
		fallback = true
	}
	native := mc.NativeUSD
	if !native.IsPositive() {
		native = m.params.FallbackNativeUSD
		fallback = true
	}

	gc := NewGasCost(units, price, native)
	gc.Fallback = fallback
	return gc
}

func confidence(execTime, window time.Duration, bps, minLiquidityUSD float64, profile TokenProfile, multiHop bool) float64 {
	c := 1.0

	ratio := 2.0
	if window > 0 {
		ratio = execTime.Seconds() / window.Seconds()
	}
	switch {
	case ratio <= 0.5:
	case ratio <= 0.8:
		c *= 0.85
	case ratio <= 1.0:
		c *= 0.6
	default:
		c *= 0.3
	}

	// Very wide spreads are more often stale data than real edge.
	switch {
	case bps < 20:
		c *= 0.7
	case bps < 50:
		c *= 0.85
	case bps > 300:
		c *= 0.8
	}

	switch {
	case minLiquidityUSD < 5_000:
		c *= 0.6
	case minLiquidityUSD < 25_000:
		c *= 0.8
	case minLiquidityUSD < 100_000:
		c *= 0.9
	}

	c *= reliability(profile)

	if multiHop {
		c *= 0.8
	}

	return math.Max(0, math.Min(1, c))
}

func reliability(p TokenProfile) float64 {
	if p.Reliability > 0 {
		return p.Reliability
	}
	switch p.Class {
	case asset.ClassStable:
		return 0.95
	case asset.ClassWrappedNative:
		return 1.0
	default:
		return 0.85
	}
}

func (m *Model) viable(confidence float64, adjusted, roi decimal.Decimal) bool {
	return confidence >= m.params.MinConfidence &&
		adjusted.GreaterThanOrEqual(m.params.MinProfitUSD) &&
		roi.GreaterThanOrEqual(m.params.MinROIPercent)
}

func (m *Model) recommend(viable bool, confidence float64, adjusted decimal.Decimal) Recommendation {
	switch {
	case !viable:
		return RecommendationSkip
	case confidence >= 0.8 && adjusted.GreaterThanOrEqual(m.params.ImmediateUSD):
		return RecommendationExecuteImmediately
	case confidence >= 0.6 && adjusted.GreaterThanOrEqual(m.params.ExecuteProfitUSD):
		return RecommendationExecute
	default:
		return RecommendationMonitor
	}
}
