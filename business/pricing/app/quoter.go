package app

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
	"github.com/fd1az/dex-spread-monitor/internal/cache"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-spread-monitor/business/pricing"
	meterName  = "github.com/fd1az/dex-spread-monitor/business/pricing"
)

// QuoterConfig holds quoting parameters.
type QuoterConfig struct {
	Bridges    []*asset.Asset // priority order
	Settlement *asset.Asset

	MinLiquidityUSD    decimal.Decimal
	StableLiquidityUSD decimal.Decimal
	MultiHopEfficiency decimal.Decimal
	ActiveLiquidity    map[uint32]decimal.Decimal
	CLLiquidityScale   decimal.Decimal
	MaxSlippage        decimal.Decimal
	CacheTTL           time.Duration
}

type quoterMetrics struct {
	quotes      metric.Int64Counter
	latency     metric.Float64Histogram
	cacheHits   metric.Int64Counter
	simulations metric.Int64Counter
}

// Quoter produces best-effort price and liquidity quotes per venue.
type Quoter struct {
	cfg    QuoterConfig
	reader ChainReader
	valuer *PoolValuer
	ref    *ReferencePrices
	logger logger.LoggerInterface

	quotes *cache.Cache[string, domain.Quote]

	tracer  trace.Tracer
	metrics *quoterMetrics
}

// NewQuoter creates a Quoter. Bridges are reordered stables first, then the
// wrapped native asset, then the rest, keeping configured order within a class.
func NewQuoter(cfg QuoterConfig, reader ChainReader, ref *ReferencePrices, log logger.LoggerInterface) (*Quoter, error) {
	if cfg.Settlement == nil || !cfg.Settlement.IsStable() {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("settlement asset must be a stable"))
	}
	if cfg.MultiHopEfficiency.IsZero() {
		cfg.MultiHopEfficiency = decimal.RequireFromString("0.7")
	}
	if cfg.CLLiquidityScale.IsZero() {
		cfg.CLLiquidityScale = one
	}
	if cfg.MaxSlippage.IsZero() {
		cfg.MaxSlippage = domain.DefaultMaxSlippage
	}

	cfg.Bridges = slices.Clone(cfg.Bridges)
	slices.SortStableFunc(cfg.Bridges, func(a, b *asset.Asset) int {
		return bridgeRank(a) - bridgeRank(b)
	})

	q := &Quoter{
		cfg:    cfg,
		reader: reader,
		valuer: ref.valuer,
		ref:    ref,
		logger: log,
		quotes: cache.New[string, domain.Quote](time.Minute),
		tracer: otel.Tracer(tracerName),
	}

	if err := q.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return q, nil
}

func bridgeRank(a *asset.Asset) int {
	switch {
	case a.IsStable():
		return 0
	case a.IsWrappedNative():
		return 1
	default:
		return 2
	}
}

func (q *Quoter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	q.metrics = &quoterMetrics{}

	q.metrics.quotes, err = meter.Int64Counter(
		"quotes_total",
		metric.WithDescription("Venue quotes by venue and outcome"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	q.metrics.latency, err = meter.Float64Histogram(
		"quote_latency_ms",
		metric.WithDescription("Quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	q.metrics.cacheHits, err = meter.Int64Counter(
		"quote_cache_hits_total",
		metric.WithDescription("Quotes served from cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	q.metrics.simulations, err = meter.Int64Counter(
		"quote_simulations_total",
		metric.WithDescription("Quoter and router simulations by result"),
		metric.WithUnit("{call}"),
	)
	return err
}

func cacheKey(token *asset.Asset, venue domain.Venue, notional decimal.Decimal) string {
	return token.Symbol() + "|" + venue.ID + "|" + notional.String()
}

// Quote prices token on venue for a trade of notionalUSD. It never fails:
// problems are reported through Success, Reason and Err on the quote.
func (q *Quoter) Quote(ctx context.Context, token *asset.Asset, venue domain.Venue, notionalUSD decimal.Decimal) domain.Quote {
	ctx, span := q.tracer.Start(ctx, "pricing.quote",
		trace.WithAttributes(
			attribute.String("token", token.Symbol()),
			attribute.String("venue", venue.ID),
		),
	)
	defer span.End()

	if token.IsStable() {
		return q.stableQuote(token, venue)
	}

	key := cacheKey(token, venue, notionalUSD)
	if cached, ok := q.quotes.Get(ctx, key); ok {
		q.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return cached
	}

	start := time.Now()
	quote := q.resolve(ctx, token, venue, notionalUSD)
	q.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("venue", venue.ID)))

	outcome := "ok"
	if !quote.Success {
		outcome = "failed"
		span.SetStatus(codes.Error, quote.Reason)
	} else {
		span.SetAttributes(
			attribute.String("price_usd", quote.PriceUSD.String()),
			attribute.String("liquidity_usd", quote.LiquidityUSD.StringFixed(0)),
			attribute.String("route", quote.Route.String()),
		)
		span.SetStatus(codes.Ok, "quoted")
	}
	q.metrics.quotes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", venue.ID),
		attribute.String("outcome", outcome),
	))

	// Pool-level and per-call RPC failures are retried next cycle, not cached.
	if !systemic(ctx, quote.Err) && !apperror.HasCode(quote.Err, apperror.CodeRPCCallFailed) {
		q.quotes.Set(ctx, key, quote, q.cfg.CacheTTL)
	}

	return quote
}

func (q *Quoter) stableQuote(token *asset.Asset, venue domain.Venue) domain.Quote {
	return domain.Quote{
		Token:        token,
		VenueID:      venue.ID,
		Protocol:     venue.Protocol,
		PriceUSD:     one,
		LiquidityUSD: q.cfg.StableLiquidityUSD,
		Route:        domain.Route{Path: []*asset.Asset{token}},
		FeeRate:      decimal.Zero,
		Slippage:     decimal.Zero,
		Source:       domain.SourceFixed,
		Success:      true,
		Timestamp:    time.Now(),
	}
}

func (q *Quoter) resolve(ctx context.Context, token *asset.Asset, venue domain.Venue, notional decimal.Decimal) domain.Quote {
	floor := q.cfg.MinLiquidityUSD

	var (
		lastErr  error
		bestSeen decimal.Decimal
	)
	note := func(l leg, err error) {
		lastErr = err
		if l.liquidityUSD.GreaterThan(bestSeen) {
			bestSeen = l.liquidityUSD
		}
	}

	for _, bridge := range q.cfg.Bridges {
		if bridge.Equals(token) {
			continue
		}

		bridgeUSD, err := q.ref.USD(ctx, bridge)
		if err != nil {
			if systemic(ctx, err) {
				return domain.NewFailedQuote(token, venue, "endpoint pool unavailable", err)
			}
			continue
		}

		l, err := q.valuer.bestLeg(ctx, venue, token, bridge, bridgeUSD, floor)
		if err != nil {
			if systemic(ctx, err) {
				return domain.NewFailedQuote(token, venue, "endpoint pool unavailable", err)
			}
			note(l, err)
			continue
		}

		quote := q.successQuote(token, venue, domain.DirectRoute(token, bridge, l.feeTier), l.feeTier, l.priceUSD, l.liquidityUSD, domain.FeeRate(l.feeTier), notional, domain.SourceState)
		if impact, ok := q.simulate(ctx, venue, token, l, bridgeUSD, notional); ok {
			quote.Slippage = impact
			quote.Source = domain.SourceSimulation
		}
		return quote
	}

	if quote, ok := q.multiHop(ctx, token, venue, notional, note); ok {
		return quote
	}

	if lastErr != nil && systemic(ctx, lastErr) {
		return domain.NewFailedQuote(token, venue, "endpoint pool unavailable", lastErr)
	}
	if bestSeen.IsPositive() {
		return domain.NewFailedQuote(token, venue,
			fmt.Sprintf("insufficient liquidity: best $%s below $%s", bestSeen.StringFixed(0), floor.StringFixed(0)),
			lastErr)
	}
	return domain.NewFailedQuote(token, venue, "no route", lastErr)
}

// multiHop prices token -> bridge -> settlement entirely on venue.
func (q *Quoter) multiHop(ctx context.Context, token *asset.Asset, venue domain.Venue, notional decimal.Decimal, note func(leg, error)) (domain.Quote, bool) {
	settlement := q.cfg.Settlement

	for _, bridge := range q.cfg.Bridges {
		if bridge.IsStable() || bridge.Equals(token) {
			continue
		}

		second, err := q.valuer.bestLeg(ctx, venue, bridge, settlement, one, q.cfg.MinLiquidityUSD)
		if err != nil && !apperror.HasCode(err, apperror.CodeInsufficientLiquidity) {
			if systemic(ctx, err) {
				return domain.NewFailedQuote(token, venue, "endpoint pool unavailable", err), true
			}
			continue
		}

		first, err := q.valuer.bestLeg(ctx, venue, token, bridge, second.priceUSD, q.cfg.MinLiquidityUSD)
		if err != nil && !apperror.HasCode(err, apperror.CodeInsufficientLiquidity) {
			if systemic(ctx, err) {
				return domain.NewFailedQuote(token, venue, "endpoint pool unavailable", err), true
			}
			continue
		}

		liquidity := decimal.Min(first.liquidityUSD, second.liquidityUSD).Mul(q.cfg.MultiHopEfficiency)
		if liquidity.LessThan(q.cfg.MinLiquidityUSD) {
			note(leg{liquidityUSD: liquidity}, apperror.New(apperror.CodeInsufficientLiquidity,
				apperror.WithContext(fmt.Sprintf("%s via %s", token.Symbol(), bridge.Symbol()))))
			continue
		}

		route := domain.Route{
			Path:     []*asset.Asset{token, bridge, settlement},
			FeeTiers: []uint32{first.feeTier, second.feeTier},
		}
		feeRate := domain.FeeRate(first.feeTier).Add(domain.FeeRate(second.feeTier))

		return q.successQuote(token, venue, route, first.feeTier, first.priceUSD, liquidity, feeRate, notional, domain.SourceState), true
	}

	return domain.Quote{}, false
}

// simulate executes the notional trade on the venue's quoter or router and
// returns its measured price impact: the shortfall of the executed price
// against the pool price net of the swap fee. PriceUSD stays the pool price
// so the fee and the impact are each charged once, on both sides alike.
func (q *Quoter) simulate(ctx context.Context, venue domain.Venue, token *asset.Asset, l leg, bridgeUSD, notional decimal.Decimal) (decimal.Decimal, bool) {
	if !l.priceUSD.IsPositive() || !bridgeUSD.IsPositive() {
		return decimal.Zero, false
	}

	amountIn, err := asset.FromDecimal(token, notional.DivRound(l.priceUSD, int32(token.Decimals())))
	if err != nil || amountIn.IsZero() {
		return decimal.Zero, false
	}

	var out *big.Int
	switch {
	case venue.IsConcentrated() && venue.HasQuoter():
		out, err = q.reader.QuoteExactInputSingle(ctx, venue.Quoter, token.Address(), l.bridge.Address(), amountIn.Raw(), l.feeTier)
	case !venue.IsConcentrated() && venue.HasRouter():
		var amounts []*big.Int
		amounts, err = q.reader.AmountsOut(ctx, venue.Router, amountIn.Raw(), []common.Address{token.Address(), l.bridge.Address()})
		if err == nil && len(amounts) > 0 {
			out = amounts[len(amounts)-1]
		}
	default:
		return decimal.Zero, false
	}

	if err != nil || out == nil || out.Sign() <= 0 {
		q.metrics.simulations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failed")))
		q.logger.Debug(ctx, "simulation failed, using estimated slippage",
			"token", token.Symbol(), "venue", venue.ID, "error", err)
		return decimal.Zero, false
	}
	q.metrics.simulations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))

	received := decimal.NewFromBigInt(out, -int32(l.bridge.Decimals()))
	executed := received.Mul(bridgeUSD).DivRound(amountIn.ToDecimal(), 18)
	expected := l.priceUSD.Mul(one.Sub(domain.FeeRate(l.feeTier)))
	if !expected.IsPositive() {
		return decimal.Zero, false
	}

	impact := one.Sub(executed.DivRound(expected, 18))
	if impact.IsNegative() {
		impact = decimal.Zero
	}
	if impact.GreaterThan(q.cfg.MaxSlippage) {
		impact = q.cfg.MaxSlippage
	}
	return impact, true
}

func (q *Quoter) successQuote(
	token *asset.Asset,
	venue domain.Venue,
	route domain.Route,
	tier uint32,
	price, liquidity, feeRate, notional decimal.Decimal,
	source domain.PriceSource,
) domain.Quote {
	return domain.Quote{
		Token:        token,
		VenueID:      venue.ID,
		Protocol:     venue.Protocol,
		PriceUSD:     price,
		LiquidityUSD: liquidity,
		Route:        route,
		FeeTier:      tier,
		FeeRate:      feeRate,
		Slippage:     domain.EstimateSlippage(notional, liquidity, tier, q.cfg.MaxSlippage),
		Source:       source,
		Success:      true,
		Timestamp:    time.Now(),
	}
}

// Close stops the cache janitor.
func (q *Quoter) Close() {
	q.quotes.Close()
}
