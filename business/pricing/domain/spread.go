package domain

import "github.com/shopspring/decimal"

var bpsFactor = decimal.NewFromInt(10000)

// Spread is the price gap between a buy and a sell venue.
type Spread struct {
	BuyPrice    decimal.Decimal
	SellPrice   decimal.Decimal
	Absolute    decimal.Decimal // sell - buy
	BasisPoints decimal.Decimal // (sell - buy) / buy * 10000, 2dp
}

// CalculateSpread computes the spread of buying at buyPrice and selling at
// sellPrice. A non-positive buy price yields a zero spread.
func CalculateSpread(buyPrice, sellPrice decimal.Decimal) Spread {
	absolute := sellPrice.Sub(buyPrice)
	bps := decimal.Zero
	if buyPrice.IsPositive() {
		bps = absolute.Div(buyPrice).Mul(bpsFactor).Round(2)
	}

	return Spread{
		BuyPrice:    buyPrice,
		SellPrice:   sellPrice,
		Absolute:    absolute,
		BasisPoints: bps,
	}
}

// GrossProfit returns notional x spread / 10000.
func (s Spread) GrossProfit(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(s.BasisPoints).Div(bpsFactor)
}

// Fraction returns the spread as a fraction of the buy price.
func (s Spread) Fraction() decimal.Decimal {
	return s.BasisPoints.Div(bpsFactor)
}
