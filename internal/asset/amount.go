package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset       = errors.New("asset: nil asset")
	ErrNegativeAmount = errors.New("asset: negative amount")
)

// Amount is an exact on-chain token quantity in the token's smallest unit.
type Amount struct {
	asset *Asset
	raw   *big.Int
}

// NewAmount creates an Amount from a raw integer value.
func NewAmount(a *Asset, raw *big.Int) Amount {
	if raw == nil {
		raw = big.NewInt(0)
	}
	return Amount{asset: a, raw: new(big.Int).Set(raw)}
}

// Asset returns the asset.
func (a Amount) Asset() *Asset { return a.asset }

// Raw returns a copy of the raw value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.raw)
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

// ToDecimal converts the raw value into whole token units.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// FromDecimal converts whole token units into an Amount, truncating any
// precision beyond the token's decimals.
func FromDecimal(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(a.Decimals())).Truncate(0)
	return NewAmount(a, scaled.BigInt()), nil
}

// String returns a human-readable representation (e.g., "1.5 WETH").
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().String(), a.asset.Symbol())
}
