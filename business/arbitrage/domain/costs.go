// Package domain contains the opportunity model and the cost and timing
// heuristics used to score it.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// GasCost is the estimated gas spend of both legs of an opportunity.
type GasCost struct {
	Units     uint64
	GasPrice  *big.Int // in wei
	TotalWei  *big.Int // units * gasPrice
	Native    decimal.Decimal
	NativeUSD decimal.Decimal // reference price used for conversion
	USD       decimal.Decimal
	Fallback  bool // static gas price or native price was used
}

// NewGasCost creates a GasCost from gas parameters.
func NewGasCost(units uint64, gasPriceWei *big.Int, nativeUSD decimal.Decimal) GasCost {
	totalWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(units))

	// 1 native = 10^18 wei
	native := decimal.NewFromBigInt(totalWei, -18)

	return GasCost{
		Units:     units,
		GasPrice:  new(big.Int).Set(gasPriceWei),
		TotalWei:  totalWei,
		Native:    native,
		NativeUSD: nativeUSD,
		USD:       native.Mul(nativeUSD),
	}
}

// CostBreakdown itemizes every cost charged against the decayed gross profit.
type CostBreakdown struct {
	Gas       GasCost
	Fees      decimal.Decimal // notional x (buy fee rate + sell fee rate)
	Slippage  decimal.Decimal // notional x (buy slippage + sell slippage)
	Ancillary decimal.Decimal
	Total     decimal.Decimal
}

func newCostBreakdown(gas GasCost, fees, slippage, ancillary decimal.Decimal) CostBreakdown {
	return CostBreakdown{
		Gas:       gas,
		Fees:      fees,
		Slippage:  slippage,
		Ancillary: ancillary,
		Total:     gas.USD.Add(fees).Add(slippage).Add(ancillary),
	}
}
