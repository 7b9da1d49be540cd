// Package domain contains the core domain types for the pricing context.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Protocol is an AMM family.
type Protocol string

const (
	ProtocolConstantProduct       Protocol = "constant_product"
	ProtocolConcentratedLiquidity Protocol = "concentrated_liquidity"
)

// Venue is one DEX deployment on the monitored chain.
type Venue struct {
	ID       string
	Name     string
	Protocol Protocol
	Factory  common.Address
	Quoter   common.Address // QuoterV2, concentrated liquidity only
	Router   common.Address // getAmountsOut router, constant product only
	FeeTiers []uint32       // hundredths of a bip, priority order
	FeeBps   uint32         // constant product swap fee
}

// IsConcentrated reports whether the venue is a concentrated-liquidity AMM.
func (v Venue) IsConcentrated() bool {
	return v.Protocol == ProtocolConcentratedLiquidity
}

// HasQuoter reports whether a QuoterV2 deployment is configured.
func (v Venue) HasQuoter() bool {
	return v.Quoter != (common.Address{})
}

// HasRouter reports whether a router is configured.
func (v Venue) HasRouter() bool {
	return v.Router != (common.Address{})
}

// FeeTierFor returns the fee expressed as a tier in hundredths of a bip.
// Constant-product venues map their bps fee onto the same scale.
func (v Venue) FeeTierFor(tier uint32) uint32 {
	if v.IsConcentrated() {
		return tier
	}
	return v.FeeBps * 100
}

// FeeRate converts a fee tier to a fraction, 3000 -> 0.003.
func FeeRate(tier uint32) decimal.Decimal {
	return decimal.NewFromInt(int64(tier)).Shift(-6)
}
