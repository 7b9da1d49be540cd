package domain

import "github.com/shopspring/decimal"

var (
	slippageSteps = []struct {
		ratio      decimal.Decimal
		multiplier decimal.Decimal
	}{
		{decimal.RequireFromString("0.01"), decimal.RequireFromString("1.0")},
		{decimal.RequireFromString("0.02"), decimal.RequireFromString("1.5")},
		{decimal.RequireFromString("0.05"), decimal.RequireFromString("2.0")},
		{decimal.RequireFromString("0.10"), decimal.RequireFromString("3.0")},
	}
	slippageTail = decimal.RequireFromString("4.0")

	// DefaultMaxSlippage caps every estimate unless configured otherwise.
	DefaultMaxSlippage = decimal.RequireFromString("0.12")
)

// feeTierScale widens slippage for wide-tier pools, whose liquidity is
// spread over a larger price range.
func feeTierScale(tier uint32) decimal.Decimal {
	switch {
	case tier == 0:
		return decimal.NewFromInt(1)
	case tier <= 100:
		return decimal.RequireFromString("0.8")
	case tier <= 500:
		return decimal.RequireFromString("0.9")
	case tier <= 3000:
		return decimal.NewFromInt(1)
	default:
		return decimal.RequireFromString("1.2")
	}
}

// EstimateSlippage returns the expected price impact of trading tradeUSD
// against liquidityUSD as a fraction. It grows faster than the trade to
// liquidity ratio, is scaled by fee tier and never exceeds maxSlippage.
func EstimateSlippage(tradeUSD, liquidityUSD decimal.Decimal, tier uint32, maxSlippage decimal.Decimal) decimal.Decimal {
	if maxSlippage.IsZero() {
		maxSlippage = DefaultMaxSlippage
	}
	if !liquidityUSD.IsPositive() {
		return maxSlippage
	}
	if !tradeUSD.IsPositive() {
		return decimal.Zero
	}

	ratio := tradeUSD.Div(liquidityUSD)
	multiplier := slippageTail
	for _, step := range slippageSteps {
		if ratio.LessThanOrEqual(step.ratio) {
			multiplier = step.multiplier
			break
		}
	}

	s := ratio.Mul(multiplier).Mul(feeTierScale(tier))
	if s.GreaterThan(maxSlippage) {
		return maxSlippage
	}
	return s
}
