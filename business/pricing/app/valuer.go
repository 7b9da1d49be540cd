package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

// leg is one token/bridge pool valued in USD.
type leg struct {
	bridge       *asset.Asset
	pool         common.Address
	feeTier      uint32
	priceUSD     decimal.Decimal
	liquidityUSD decimal.Decimal
}

// PoolValuer finds and values the pool for a token/bridge pair on a venue.
type PoolValuer struct {
	reader          ChainReader
	activeLiquidity map[uint32]decimal.Decimal
	clScale         decimal.Decimal
}

// NewValuer builds the pool valuer shared by the quoter and reference prices.
func NewValuer(reader ChainReader, activeLiquidity map[uint32]decimal.Decimal, clScale decimal.Decimal) *PoolValuer {
	if clScale.IsZero() {
		clScale = one
	}
	return &PoolValuer{reader: reader, activeLiquidity: activeLiquidity, clScale: clScale}
}

// systemic reports errors that no other pool or bridge can avoid.
func systemic(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil ||
		apperror.HasCode(err, apperror.CodeEndpointPoolExhausted) ||
		apperror.HasCode(err, apperror.CodeEndpointPoolEmpty)
}

// bestLeg probes the venue's pools for (token, bridge) in priority order and
// returns the first whose liquidity reaches floor. When none does, it returns
// the deepest one seen with a CodeInsufficientLiquidity error. A systemic
// error is returned as soon as it is seen.
func (v *PoolValuer) bestLeg(ctx context.Context, venue domain.Venue, token, bridge *asset.Asset, bridgeUSD, floor decimal.Decimal) (leg, error) {
	var (
		best    leg
		found   bool
		lastErr error
	)

	consider := func(l leg) bool {
		if !found || l.liquidityUSD.GreaterThan(best.liquidityUSD) {
			best, found = l, true
		}
		return l.liquidityUSD.GreaterThanOrEqual(floor)
	}

	if venue.IsConcentrated() {
		for _, tier := range venue.FeeTiers {
			l, ok, err := v.concentrated(ctx, venue, token, bridge, bridgeUSD, tier)
			if err != nil {
				if systemic(ctx, err) {
					return leg{}, err
				}
				lastErr = err
				continue
			}
			if ok && consider(l) {
				return l, nil
			}
		}
	} else {
		l, ok, err := v.constantProduct(ctx, venue, token, bridge, bridgeUSD)
		if err != nil {
			if systemic(ctx, err) {
				return leg{}, err
			}
			lastErr = err
		} else if ok && consider(l) {
			return l, nil
		}
	}

	if found {
		return best, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("%s/%s best $%s below $%s",
				token.Symbol(), bridge.Symbol(), best.liquidityUSD.StringFixed(0), floor.StringFixed(0))))
	}
	if lastErr != nil {
		return leg{}, lastErr
	}
	return leg{}, apperror.New(apperror.CodePoolNotFound,
		apperror.WithContext(fmt.Sprintf("%s/%s on %s", token.Symbol(), bridge.Symbol(), venue.ID)))
}

func (v *PoolValuer) concentrated(ctx context.Context, venue domain.Venue, token, bridge *asset.Asset, bridgeUSD decimal.Decimal, tier uint32) (leg, bool, error) {
	pool, err := v.reader.PoolFor(ctx, venue.Factory, token.Address(), bridge.Address(), tier)
	if err != nil {
		return leg{}, false, err
	}
	if pool == (common.Address{}) {
		return leg{}, false, nil
	}

	state, err := v.reader.PoolState(ctx, pool)
	if err != nil {
		return leg{}, false, err
	}

	val, ok := domain.ValueConcentrated(state, token.Address(), token.Decimals(), bridge.Decimals())
	if !ok {
		return leg{}, false, nil
	}

	price, raw := val.USD(bridgeUSD)
	liquidity := raw.Mul(domain.ActiveFraction(tier, v.activeLiquidity)).Mul(v.clScale)

	return leg{
		bridge:       bridge,
		pool:         pool,
		feeTier:      tier,
		priceUSD:     price,
		liquidityUSD: liquidity,
	}, true, nil
}

func (v *PoolValuer) constantProduct(ctx context.Context, venue domain.Venue, token, bridge *asset.Asset, bridgeUSD decimal.Decimal) (leg, bool, error) {
	pair, err := v.reader.PairFor(ctx, venue.Factory, token.Address(), bridge.Address())
	if err != nil {
		return leg{}, false, err
	}
	if pair == (common.Address{}) {
		return leg{}, false, nil
	}

	reserves, err := v.reader.Reserves(ctx, pair)
	if err != nil {
		return leg{}, false, err
	}

	val, ok := domain.ValueConstantProduct(reserves, token.Address(), token.Decimals(), bridge.Decimals())
	if !ok {
		return leg{}, false, nil
	}

	price, liquidity := val.USD(bridgeUSD)

	return leg{
		bridge:       bridge,
		pool:         pair,
		feeTier:      venue.FeeTierFor(0),
		priceUSD:     price,
		liquidityUSD: liquidity,
	}, true, nil
}
