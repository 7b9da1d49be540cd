package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	q96  = new(big.Int).Lsh(big.NewInt(1), 96)
	q192 = new(big.Int).Lsh(big.NewInt(1), 192)

	two = decimal.NewFromInt(2)
)

const pricePrecision = 36

// PairReserves is the state of a constant-product pair.
type PairReserves struct {
	Token0   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// PoolState is the state of a concentrated-liquidity pool.
type PoolState struct {
	Token0       common.Address
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
}

// Valuation is a token priced against one bridge asset in one pool.
type Valuation struct {
	Price        decimal.Decimal // bridge units per token
	BridgeAmount decimal.Decimal // bridge-side depth, in bridge units
}

// USD converts the valuation with the bridge's USD price.
// Liquidity counts both sides of the pool.
func (v Valuation) USD(bridgeUSD decimal.Decimal) (price, liquidity decimal.Decimal) {
	return v.Price.Mul(bridgeUSD), v.BridgeAmount.Mul(bridgeUSD).Mul(two)
}

// ValueConstantProduct prices token against bridge from pair reserves.
func ValueConstantProduct(r PairReserves, token common.Address, tokenDecimals, bridgeDecimals uint8) (Valuation, bool) {
	if r.Reserve0 == nil || r.Reserve1 == nil || r.Reserve0.Sign() <= 0 || r.Reserve1.Sign() <= 0 {
		return Valuation{}, false
	}

	tokenRes, bridgeRes := r.Reserve0, r.Reserve1
	if r.Token0 != token {
		tokenRes, bridgeRes = r.Reserve1, r.Reserve0
	}

	tokenAmt := decimal.NewFromBigInt(tokenRes, -int32(tokenDecimals))
	bridgeAmt := decimal.NewFromBigInt(bridgeRes, -int32(bridgeDecimals))

	return Valuation{
		Price:        bridgeAmt.DivRound(tokenAmt, pricePrecision),
		BridgeAmount: bridgeAmt,
	}, true
}

// ValueConcentrated prices token against bridge from slot0 and in-range
// liquidity. BridgeAmount is the virtual bridge reserve implied by L and the
// current price, before any active-range discount.
func ValueConcentrated(s PoolState, token common.Address, tokenDecimals, bridgeDecimals uint8) (Valuation, bool) {
	if s.SqrtPriceX96 == nil || s.SqrtPriceX96.Sign() <= 0 || s.Liquidity == nil || s.Liquidity.Sign() <= 0 {
		return Valuation{}, false
	}

	tokenIsToken0 := s.Token0 == token

	dec0, dec1 := tokenDecimals, bridgeDecimals
	if !tokenIsToken0 {
		dec0, dec1 = bridgeDecimals, tokenDecimals
	}

	// token1 per token0 = sqrtPriceX96^2 / 2^192, adjusted for decimals
	sq := new(big.Int).Mul(s.SqrtPriceX96, s.SqrtPriceX96)
	price1Per0 := decimal.NewFromBigInt(sq, int32(dec0)-int32(dec1)).
		DivRound(decimal.NewFromBigInt(q192, 0), pricePrecision)
	if !price1Per0.IsPositive() {
		return Valuation{}, false
	}

	// virtual reserves: y = L * sqrtP, x = L / sqrtP
	var bridgeRaw *big.Int
	if tokenIsToken0 {
		bridgeRaw = new(big.Int).Mul(s.Liquidity, s.SqrtPriceX96)
		bridgeRaw.Quo(bridgeRaw, q96)
	} else {
		bridgeRaw = new(big.Int).Mul(s.Liquidity, q96)
		bridgeRaw.Quo(bridgeRaw, s.SqrtPriceX96)
	}

	price := price1Per0
	if !tokenIsToken0 {
		price = decimal.NewFromInt(1).DivRound(price1Per0, pricePrecision)
	}

	return Valuation{
		Price:        price,
		BridgeAmount: decimal.NewFromBigInt(bridgeRaw, -int32(bridgeDecimals)),
	}, true
}

// ActiveFraction returns the share of a concentrated pool's liquidity assumed
// to sit near the current price for tier. Overrides are keyed by tier.
func ActiveFraction(tier uint32, overrides map[uint32]decimal.Decimal) decimal.Decimal {
	if f, ok := overrides[tier]; ok {
		return f
	}
	switch {
	case tier <= 100:
		return decimal.RequireFromString("0.85")
	case tier <= 500:
		return decimal.RequireFromString("0.75")
	case tier <= 3000:
		return decimal.RequireFromString("0.60")
	default:
		return decimal.RequireFromString("0.45")
	}
}
