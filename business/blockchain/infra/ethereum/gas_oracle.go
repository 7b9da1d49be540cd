package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-spread-monitor/business/blockchain/app"
	"github.com/fd1az/dex-spread-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/cache"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

var _ app.GasOracle = (*GasOracle)(nil)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // How long to cache gas prices
	MaxGasPrice *big.Int      // Upper bound applied to node suggestions
}

// DefaultGasOracleConfig returns defaults for a chain with ~2s blocks.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL:    6 * time.Second,
		MaxGasPrice: domain.GasPriceFromGwei(1000).Wei,
	}
}

type gasOracleMetrics struct {
	fetches     metric.Int64Counter
	gwei        metric.Float64Gauge
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// GasOracle reads eth_gasPrice through the endpoint pool.
type GasOracle struct {
	config GasOracleConfig
	pool   *app.Pool
	logger logger.LoggerInterface

	priceCache *cache.Cache[string, *domain.GasPrice]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, pool *app.Pool, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:     cfg,
		pool:       pool,
		logger:     log,
		priceCache: cache.New[string, *domain.GasPrice](time.Minute),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.fetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// GasPrice retrieves the current gas price with caching.
func (g *GasOracle) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.price")
	defer span.End()

	if price, found := g.priceCache.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.cacheMisses.Add(ctx, 1)
	g.metrics.fetches.Add(ctx, 1)

	wei, err := app.Call(ctx, g.pool, "eth_gasPrice", func(ctx context.Context, c app.Client) (*big.Int, error) {
		return c.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max", "wei", wei.String())
		wei = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(wei)
	g.priceCache.Set(ctx, "current", price, g.config.CacheTTL)
	g.metrics.gwei.Record(ctx, price.GweiFloat())

	span.SetAttributes(attribute.Float64("gwei", price.GweiFloat()))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// Close stops the cache janitor.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}
