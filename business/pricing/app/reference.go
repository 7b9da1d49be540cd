package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
	"github.com/fd1az/dex-spread-monitor/internal/cache"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

var one = decimal.NewFromInt(1)

// ReferencePrices values bridge assets in USD against the settlement stable
// on a single reference venue.
type ReferencePrices struct {
	valuer         *PoolValuer
	venue          domain.Venue
	settlement     *asset.Asset
	wrappedNative  *asset.Asset
	fallbackNative decimal.Decimal
	ttl            time.Duration
	prices         *cache.Cache[string, decimal.Decimal]
	logger         logger.LoggerInterface
}

// NewReferencePrices creates a reference price source. wrappedNative may be
// nil, in which case NativeUSD always returns the fallback.
func NewReferencePrices(
	valuer *PoolValuer,
	venue domain.Venue,
	settlement, wrappedNative *asset.Asset,
	fallbackNative decimal.Decimal,
	ttl time.Duration,
	log logger.LoggerInterface,
) *ReferencePrices {
	return &ReferencePrices{
		valuer:         valuer,
		venue:          venue,
		settlement:     settlement,
		wrappedNative:  wrappedNative,
		fallbackNative: fallbackNative,
		ttl:            ttl,
		prices:         cache.New[string, decimal.Decimal](time.Minute),
		logger:         log,
	}
}

// USD returns the USD price of a. Stables are worth exactly one dollar.
func (r *ReferencePrices) USD(ctx context.Context, a *asset.Asset) (decimal.Decimal, error) {
	if a.IsStable() {
		return one, nil
	}

	if p, ok := r.prices.Get(ctx, a.Symbol()); ok {
		return p, nil
	}

	l, err := r.valuer.bestLeg(ctx, r.venue, a, r.settlement, one, decimal.Zero)
	if err != nil {
		return decimal.Zero, err
	}
	if !l.priceUSD.IsPositive() {
		return decimal.Zero, apperror.New(apperror.CodeReferencePriceMissing,
			apperror.WithContext(a.Symbol()+" priced at zero on "+r.venue.ID))
	}

	r.prices.Set(ctx, a.Symbol(), l.priceUSD, r.ttl)
	return l.priceUSD, nil
}

// NativeUSD returns the native asset price and whether it came from the chain.
// It falls back to the configured constant on any failure.
func (r *ReferencePrices) NativeUSD(ctx context.Context) (decimal.Decimal, bool) {
	if r.wrappedNative == nil {
		return r.fallbackNative, false
	}

	p, err := r.USD(ctx, r.wrappedNative)
	if err != nil {
		r.logger.Debug(ctx, "native reference price unavailable, using fallback",
			"symbol", r.wrappedNative.Symbol(),
			"fallback", r.fallbackNative.String(),
			"error", err,
		)
		return r.fallbackNative, false
	}
	return p, true
}

// Close stops the cache janitor.
func (r *ReferencePrices) Close() {
	r.prices.Close()
}
