// Package asset provides a type-safe model for on-chain tokens.
// The core uses big.Int for exact on-chain representation;
// decimal.Decimal is used at USD-valuation boundaries.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Class groups tokens by price behaviour.
type Class string

const (
	ClassStable        Class = "stable"
	ClassWrappedNative Class = "wrapped_native"
	ClassVolatile      Class = "volatile"
)

// AssetID uniquely identifies a token by chain and contract address.
// The symbol is NOT identity - just metadata for display.
type AssetID struct {
	chainID uint64
	address common.Address
}

// NewAssetID creates an AssetID for an ERC20 token.
func NewAssetID(chainID uint64, addr common.Address) AssetID {
	return AssetID{chainID: chainID, address: addr}
}

// ChainID returns the chain ID.
func (id AssetID) ChainID() uint64 { return id.chainID }

// Address returns the token contract address.
func (id AssetID) Address() common.Address { return id.address }

// String returns a human-readable representation.
func (id AssetID) String() string {
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

// Asset is the immutable metadata of a token.
type Asset struct {
	id       AssetID
	symbol   string
	decimals uint8
	class    Class
}

// NewAsset creates a new Asset. It panics on invalid metadata since assets
// are built once from validated configuration.
func NewAsset(chainID uint64, addr common.Address, symbol string, decimals uint8, class Class) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	if class == "" {
		class = ClassVolatile
	}

	return &Asset{
		id:       NewAssetID(chainID, addr),
		symbol:   symbol,
		decimals: decimals,
		class:    class,
	}
}

// ID returns the unique identifier for this asset.
func (a *Asset) ID() AssetID { return a.id }

// Symbol returns the ticker symbol (e.g., "WETH", "USDC").
func (a *Asset) Symbol() string { return a.symbol }

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 { return a.decimals }

// Class returns the price-behaviour class.
func (a *Asset) Class() Class { return a.class }

// Address returns the token contract address.
func (a *Asset) Address() common.Address { return a.id.address }

// ChainID returns the chain the token lives on.
func (a *Asset) ChainID() uint64 { return a.id.chainID }

// IsStable reports whether the token is a USD stablecoin.
func (a *Asset) IsStable() bool { return a.class == ClassStable }

// IsWrappedNative reports whether the token wraps the chain's native coin.
func (a *Asset) IsWrappedNative() bool { return a.class == ClassWrappedNative }

// String returns the symbol.
func (a *Asset) String() string { return a.symbol }

// Equals compares two Assets by their ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}
