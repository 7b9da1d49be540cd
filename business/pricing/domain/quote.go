package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

// PriceSource tells where a quote's price came from.
type PriceSource string

const (
	SourceFixed      PriceSource = "fixed"      // stable short-circuit
	SourceState      PriceSource = "state"      // reserves or sqrtPriceX96
	SourceSimulation PriceSource = "simulation" // quoter or router call
)

// Route is the token path a quote was priced along.
type Route struct {
	Path     []*asset.Asset
	FeeTiers []uint32 // one per hop, zero for constant product
}

// DirectRoute builds a one-hop route.
func DirectRoute(token, bridge *asset.Asset, tier uint32) Route {
	return Route{Path: []*asset.Asset{token, bridge}, FeeTiers: []uint32{tier}}
}

// Hops returns the number of swaps along the route.
func (r Route) Hops() int {
	if len(r.Path) < 2 {
		return 0
	}
	return len(r.Path) - 1
}

// IsMultiHop reports whether the route needs more than one swap.
func (r Route) IsMultiHop() bool {
	return r.Hops() > 1
}

func (r Route) String() string {
	if len(r.Path) == 0 {
		return "-"
	}
	parts := make([]string, len(r.Path))
	for i, a := range r.Path {
		parts[i] = a.Symbol()
	}
	return strings.Join(parts, "->")
}

// Quote is a best-effort price and liquidity sample for one token on one venue.
type Quote struct {
	Token        *asset.Asset
	VenueID      string
	Protocol     Protocol
	PriceUSD     decimal.Decimal
	LiquidityUSD decimal.Decimal
	Route        Route
	FeeTier      uint32          // first hop fee tier, zero when not applicable
	FeeRate      decimal.Decimal // total swap fee fraction along the route
	Slippage     decimal.Decimal // fraction, already capped
	Source       PriceSource
	Success      bool
	Reason       string
	Err          error // underlying error of a failed quote, if any
	Timestamp    time.Time
}

// NewFailedQuote builds a failed quote. Price and liquidity are always zero.
func NewFailedQuote(token *asset.Asset, venue Venue, reason string, err error) Quote {
	return Quote{
		Token:        token,
		VenueID:      venue.ID,
		Protocol:     venue.Protocol,
		PriceUSD:     decimal.Zero,
		LiquidityUSD: decimal.Zero,
		FeeRate:      decimal.Zero,
		Slippage:     decimal.Zero,
		Success:      false,
		Reason:       reason,
		Err:          err,
		Timestamp:    time.Now(),
	}
}

// Usable reports whether the quote can take part in spread detection.
func (q Quote) Usable(minLiquidityUSD decimal.Decimal) bool {
	return q.Success &&
		q.PriceUSD.IsPositive() &&
		q.LiquidityUSD.GreaterThanOrEqual(minLiquidityUSD)
}

// FeeTierPercent returns the fee tier as a percentage string (e.g., "0.30%").
func (q Quote) FeeTierPercent() string {
	return fmt.Sprintf("%.2f%%", float64(q.FeeTier)/10000.0)
}

func (q Quote) String() string {
	if !q.Success {
		return fmt.Sprintf("%s@%s failed: %s", q.Token, q.VenueID, q.Reason)
	}
	return fmt.Sprintf("%s@%s $%s liq $%s via %s", q.Token, q.VenueID,
		q.PriceUSD.StringFixed(6), q.LiquidityUSD.StringFixed(0), q.Route)
}
