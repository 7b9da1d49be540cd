package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
	"github.com/fd1az/dex-spread-monitor/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/dex-spread-monitor/business/arbitrage"
	meterName  = "github.com/fd1az/dex-spread-monitor/business/arbitrage"
)

// TrackedToken is a token polled every cycle together with its model profile.
type TrackedToken struct {
	Asset   *asset.Asset
	Profile domain.TokenProfile
}

// DetectorConfig holds configuration for the opportunity detector.
type DetectorConfig struct {
	Tokens           []TrackedToken
	NotionalUSD      decimal.Decimal
	MinSpreadBps     decimal.Decimal
	MinLiquidityUSD  decimal.Decimal
	TopN             int
	VenueConcurrency int
	BatchPause       time.Duration
	RotateBelowRate  float64
}

// Stats are the cumulative detector counters.
type Stats struct {
	Cycles      int64
	Checks      int64
	Found       int64
	Viable      int64
	FetchOK     int64
	FetchFailed int64
	Dispatched  int64
	Suppressed  int64
	Rotations   int64
}

type counters struct {
	cycles      atomic.Int64
	checks      atomic.Int64
	found       atomic.Int64
	viable      atomic.Int64
	fetchOK     atomic.Int64
	fetchFailed atomic.Int64
	dispatched  atomic.Int64
	suppressed  atomic.Int64
	rotations   atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Cycles:      c.cycles.Load(),
		Checks:      c.checks.Load(),
		Found:       c.found.Load(),
		Viable:      c.viable.Load(),
		FetchOK:     c.fetchOK.Load(),
		FetchFailed: c.fetchFailed.Load(),
		Dispatched:  c.dispatched.Load(),
		Suppressed:  c.suppressed.Load(),
		Rotations:   c.rotations.Load(),
	}
}

// reset clears everything but the cycle number.
func (c *counters) reset() {
	c.checks.Store(0)
	c.found.Store(0)
	c.viable.Store(0)
	c.fetchOK.Store(0)
	c.fetchFailed.Store(0)
	c.dispatched.Store(0)
	c.suppressed.Store(0)
	c.rotations.Store(0)
}

type detectorMetrics struct {
	cycles        metric.Int64Counter
	cycleDuration metric.Float64Histogram
	fetches       metric.Int64Counter
	opportunities metric.Int64Counter
	rotations     metric.Int64Counter
}

// Detector runs polling cycles: quote every venue for every tracked token,
// score the widest spread and dispatch the best viable opportunities.
type Detector struct {
	cfg        DetectorConfig
	quoter     VenueQuoter
	chain      Chain
	model      *domain.Model
	dispatcher Dispatcher
	reporter   Reporter
	logger     logger.LoggerInterface

	stats counters

	tracer  trace.Tracer
	metrics *detectorMetrics
}

// NewDetector creates a new Detector.
func NewDetector(
	cfg DetectorConfig,
	quoter VenueQuoter,
	chain Chain,
	model *domain.Model,
	dispatcher Dispatcher,
	reporter Reporter,
	log logger.LoggerInterface,
) (*Detector, error) {
	if len(cfg.Tokens) == 0 {
		return nil, apperror.New(apperror.CodeNoTokensConfigured)
	}
	if cfg.VenueConcurrency < 1 {
		cfg.VenueConcurrency = 2
	}
	if cfg.TopN < 1 {
		cfg.TopN = 3
	}

	d := &Detector{
		cfg:        cfg,
		quoter:     quoter,
		chain:      chain,
		model:      model,
		dispatcher: dispatcher,
		reporter:   reporter,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}

	if err := d.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return d, nil
}

func (d *Detector) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	d.metrics = &detectorMetrics{}

	d.metrics.cycles, err = meter.Int64Counter(
		"detector_cycles_total",
		metric.WithDescription("Polling cycles by outcome"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return err
	}

	d.metrics.cycleDuration, err = meter.Float64Histogram(
		"detector_cycle_duration_ms",
		metric.WithDescription("Polling cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	d.metrics.fetches, err = meter.Int64Counter(
		"detector_price_fetches_total",
		metric.WithDescription("Venue price fetches by outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	d.metrics.opportunities, err = meter.Int64Counter(
		"detector_opportunities_total",
		metric.WithDescription("Opportunities by stage (found, viable, dispatched, suppressed)"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	d.metrics.rotations, err = meter.Int64Counter(
		"detector_endpoint_rotations_total",
		metric.WithDescription("Endpoint rotations triggered by a low fetch success rate"),
		metric.WithUnit("{rotation}"),
	)
	return err
}

// Start starts the reporter.
func (d *Detector) Start(ctx context.Context) error {
	d.logger.Info(ctx, "starting opportunity detector",
		"tokens", len(d.cfg.Tokens),
		"venues", len(d.quoter.Venues()),
		"notional_usd", d.cfg.NotionalUSD.String(),
		"min_spread_bps", d.cfg.MinSpreadBps.String(),
	)
	return d.reporter.Start(ctx)
}

// Stop gracefully shuts down the detector.
func (d *Detector) Stop() error {
	return d.reporter.Stop()
}

// Stats returns a snapshot of the cumulative counters.
func (d *Detector) Stats() Stats {
	return d.stats.snapshot()
}

// ResetCounters zeroes the cumulative counters.
func (d *Detector) ResetCounters() {
	d.stats.reset()
}

// PoolUnavailable reports whether err means the endpoint pool cannot serve
// calls until it is re-probed.
func PoolUnavailable(err error) bool {
	return apperror.HasCode(err, apperror.CodeEndpointPoolExhausted) ||
		apperror.HasCode(err, apperror.CodeEndpointPoolEmpty)
}

// RunCycle executes one polling cycle. It returns an error only when the
// cycle cannot continue: the context ended or the endpoint pool is down.
func (d *Detector) RunCycle(ctx context.Context) (CycleReport, error) {
	ctx, span := d.tracer.Start(ctx, "arbitrage.cycle")
	defer span.End()

	report := CycleReport{
		Cycle:     uint64(d.stats.cycles.Add(1)),
		StartedAt: time.Now(),
		Tokens:    len(d.cfg.Tokens),
	}

	mc, err := d.marketConditions(ctx, &report)
	if err != nil {
		return d.finish(ctx, span, report, err)
	}

	for _, token := range d.cfg.Tokens {
		if err := ctx.Err(); err != nil {
			return d.finish(ctx, span, report, err)
		}

		quotes, err := d.fetchQuotes(ctx, token)
		ok, failed := tally(quotes)
		report.FetchOK += ok
		report.FetchFailed += failed
		d.recordFetches(ctx, ok, failed)

		if err != nil {
			if PoolUnavailable(err) || ctx.Err() != nil {
				return d.finish(ctx, span, report, err)
			}
			d.logger.Warn(ctx, "token scan failed", "token", token.Asset.Symbol(), "error", err)
			continue
		}

		d.stats.checks.Add(1)
		if opp := d.evaluate(token, quotes, mc); opp != nil {
			report.Candidates = append(report.Candidates, opp)
		}
	}

	for _, opp := range rank(report.Candidates, d.cfg.TopN) {
		sent, err := d.dispatcher.Dispatch(ctx, opp)
		switch {
		case err != nil:
			d.logger.Warn(ctx, "dispatch failed", "opportunity", opp.ID, "pair", opp.Pair(), "error", err)
		case sent:
			d.stats.dispatched.Add(1)
			d.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "dispatched")))
			report.Dispatched = append(report.Dispatched, opp)
		default:
			d.stats.suppressed.Add(1)
			d.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "suppressed")))
		}
	}

	if report.SuccessRate() < d.cfg.RotateBelowRate {
		d.logger.Warn(ctx, "low price fetch success rate, rotating endpoint",
			"success_rate", report.SuccessRate(),
			"threshold", d.cfg.RotateBelowRate,
		)
		if err := d.chain.Rotate(ctx); err != nil {
			d.logger.Error(ctx, "endpoint rotation failed", "error", err)
			if PoolUnavailable(err) {
				return d.finish(ctx, span, report, err)
			}
		} else {
			report.Rotated = true
			d.stats.rotations.Add(1)
			d.metrics.rotations.Add(ctx, 1)
		}
	}

	return d.finish(ctx, span, report, nil)
}

// marketConditions samples gas, native price and head block. Only a down
// pool is fatal; other gaps fall back to the model's static constants.
func (d *Detector) marketConditions(ctx context.Context, report *CycleReport) (domain.MarketConditions, error) {
	mc := domain.MarketConditions{Now: report.StartedAt}

	gas, err := d.chain.GasPrice(ctx)
	switch {
	case err == nil:
		mc.GasPrice = gas.Wei
		report.GasPriceGwei = gas.GweiFloat()
	case PoolUnavailable(err):
		return mc, err
	default:
		d.logger.Warn(ctx, "gas price unavailable, using fallback", "error", err)
	}

	block, err := d.chain.LatestBlock(ctx)
	switch {
	case err == nil:
		mc.BlockNumber = block
		report.BlockNumber = block
	case PoolUnavailable(err):
		return mc, err
	default:
		d.logger.Warn(ctx, "block number unavailable", "error", err)
	}

	native, live := d.quoter.NativeUSD(ctx)
	if !live {
		d.logger.Debug(ctx, "native price is the static fallback", "native_usd", native.String())
	}
	mc.NativeUSD = native
	report.NativeUSD = native

	return mc, nil
}

// fetchQuotes quotes every venue in batches of VenueConcurrency with a pause
// between batches. It fails with the underlying cause when a quote reports
// the endpoint pool as unavailable.
func (d *Detector) fetchQuotes(ctx context.Context, token TrackedToken) ([]pricingDomain.Quote, error) {
	venues := d.quoter.Venues()
	quotes := make([]pricingDomain.Quote, len(venues))
	step := d.cfg.VenueConcurrency

	for start := 0; start < len(venues); start += step {
		if start > 0 {
			if err := ratelimit.Pause(ctx, d.cfg.BatchPause); err != nil {
				return quotes[:start], err
			}
		}

		end := min(start+step, len(venues))
		g := new(errgroup.Group)
		g.SetLimit(step)
		for i := start; i < end; i++ {
			g.Go(func() error {
				quotes[i] = d.quoter.Quote(ctx, token.Asset, venues[i], d.cfg.NotionalUSD)
				return nil
			})
		}
		_ = g.Wait()

		for _, q := range quotes[start:end] {
			if !q.Success && PoolUnavailable(q.Err) {
				return quotes[:end], q.Err
			}
		}
	}

	for _, q := range quotes {
		if !q.Success {
			d.logger.Debug(ctx, "venue quote failed",
				"token", token.Asset.Symbol(),
				"venue", q.VenueID,
				"reason", q.Reason,
			)
		}
	}

	return quotes, nil
}

// evaluate picks the cheapest and dearest usable quotes and scores the
// spread between them. It returns nil when no candidate exists.
func (d *Detector) evaluate(token TrackedToken, quotes []pricingDomain.Quote, mc domain.MarketConditions) *domain.Opportunity {
	var buy, sell *pricingDomain.Quote
	venues := make(map[string]struct{}, len(quotes))

	for i := range quotes {
		q := &quotes[i]
		if !q.Usable(d.cfg.MinLiquidityUSD) {
			continue
		}
		venues[q.VenueID] = struct{}{}

		if buy == nil || q.PriceUSD.LessThan(buy.PriceUSD) {
			buy = q
		}
		if sell == nil || q.PriceUSD.GreaterThan(sell.PriceUSD) {
			sell = q
		}
	}

	if len(venues) < 2 || buy.VenueID == sell.VenueID {
		return nil
	}

	spread := pricingDomain.CalculateSpread(buy.PriceUSD, sell.PriceUSD)
	if spread.BasisPoints.LessThan(d.cfg.MinSpreadBps) {
		return nil
	}
	d.stats.found.Add(1)

	opp := d.model.Evaluate(domain.Draft{
		Token:    token.Asset,
		Profile:  token.Profile,
		Buy:      *buy,
		Sell:     *sell,
		Notional: d.cfg.NotionalUSD,
	}, mc).WithID()

	if opp.Viable {
		d.stats.viable.Add(1)
	}
	return &opp
}

// rank orders viable opportunities by adjusted profit x confidence and keeps
// the first n.
func rank(candidates []*domain.Opportunity, n int) []*domain.Opportunity {
	viable := make([]*domain.Opportunity, 0, len(candidates))
	for _, opp := range candidates {
		if opp.Viable {
			viable = append(viable, opp)
		}
	}

	slices.SortStableFunc(viable, func(a, b *domain.Opportunity) int {
		return b.Score().Cmp(a.Score())
	})

	if len(viable) > n {
		viable = viable[:n]
	}
	return viable
}

func tally(quotes []pricingDomain.Quote) (ok, failed int) {
	for _, q := range quotes {
		if q.Success {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

func (d *Detector) recordFetches(ctx context.Context, ok, failed int) {
	d.stats.fetchOK.Add(int64(ok))
	d.stats.fetchFailed.Add(int64(failed))
	d.metrics.fetches.Add(ctx, int64(ok), metric.WithAttributes(attribute.String("outcome", "ok")))
	d.metrics.fetches.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", "failed")))
}

func (d *Detector) finish(ctx context.Context, span trace.Span, report CycleReport, err error) (CycleReport, error) {
	report.Duration = time.Since(report.StartedAt)
	report.Pool = d.chain.Status()
	report.Err = err

	found, viable := 0, 0
	for _, opp := range report.Candidates {
		found++
		if opp.Viable {
			viable++
		}
	}
	d.metrics.opportunities.Add(ctx, int64(found), metric.WithAttributes(attribute.String("stage", "found")))
	d.metrics.opportunities.Add(ctx, int64(viable), metric.WithAttributes(attribute.String("stage", "viable")))
	d.metrics.cycleDuration.Record(ctx, float64(report.Duration.Milliseconds()))

	outcome := "ok"
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "cycle complete")
	case errors.Is(err, context.Canceled):
		outcome = "cancelled"
	default:
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	d.metrics.cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.SetAttributes(
		attribute.Int("candidates", found),
		attribute.Int("viable", viable),
		attribute.Int("dispatched", len(report.Dispatched)),
		attribute.Float64("success_rate", report.SuccessRate()),
	)

	report.Totals = d.stats.snapshot()

	d.logger.Info(ctx, "cycle complete",
		"cycle", report.Cycle,
		"duration_ms", report.Duration.Milliseconds(),
		"block", report.BlockNumber,
		"fetch_ok", report.FetchOK,
		"fetch_failed", report.FetchFailed,
		"candidates", found,
		"viable", viable,
		"dispatched", len(report.Dispatched),
	)

	d.reporter.ReportCycle(report)
	return report, err
}
