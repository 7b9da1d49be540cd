package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

// Timing holds the execution-time and decay estimates of an opportunity.
type Timing struct {
	ExecutionTime time.Duration
	Window        time.Duration
	DecayRate     float64         // per second
	Remaining     decimal.Decimal // e^(-rate x executionTime)
	Deadline      time.Time
}

// Opportunity is a scored cross-venue spread. It is immutable after Evaluate.
type Opportunity struct {
	ID             string
	Token          *asset.Asset
	Buy            pricingDomain.Quote
	Sell           pricingDomain.Quote
	Notional       decimal.Decimal
	Spread         pricingDomain.Spread
	GrossProfit    decimal.Decimal
	AdjustedProfit decimal.Decimal
	ROIPercent     decimal.Decimal
	Costs          CostBreakdown
	Timing         Timing
	Confidence     float64
	Viable         bool
	Recommendation Recommendation
	BlockNumber    uint64
	DetectedAt     time.Time
}

// WithID returns a copy stamped with a fresh identifier.
func (o Opportunity) WithID() Opportunity {
	o.ID = uuid.NewString()
	return o
}

// Score is the ranking key: adjusted profit weighted by confidence.
func (o *Opportunity) Score() decimal.Decimal {
	return o.AdjustedProfit.Mul(decimal.NewFromFloat(o.Confidence))
}

// IsMultiHop reports whether either leg needs more than one swap.
func (o *Opportunity) IsMultiHop() bool {
	return o.Buy.Route.IsMultiHop() || o.Sell.Route.IsMultiHop()
}

// MinLiquidityUSD returns the thinner side's liquidity.
func (o *Opportunity) MinLiquidityUSD() decimal.Decimal {
	return decimal.Min(o.Buy.LiquidityUSD, o.Sell.LiquidityUSD)
}

// Expired reports whether the viability window has passed at now.
func (o *Opportunity) Expired(now time.Time) bool {
	return now.After(o.Timing.Deadline)
}

// Pair returns "TOKEN buyVenue->sellVenue".
func (o *Opportunity) Pair() string {
	return o.Token.Symbol() + " " + o.Buy.VenueID + "->" + o.Sell.VenueID
}
