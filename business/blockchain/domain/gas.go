package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// GasPrice represents gas price information.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Timestamp: time.Now(),
	}
}

// GasPriceFromGwei builds a GasPrice from a gwei value.
func GasPriceFromGwei(gwei float64) *GasPrice {
	wei := decimal.NewFromFloat(gwei).Shift(9).Truncate(0).BigInt()
	return NewGasPrice(wei)
}

// Gwei returns the price in gwei.
func (g *GasPrice) Gwei() decimal.Decimal {
	if g == nil || g.Wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(g.Wei, -9)
}

// GweiFloat returns the price in gwei for metrics and display.
func (g *GasPrice) GweiFloat() float64 {
	return g.Gwei().InexactFloat64()
}
