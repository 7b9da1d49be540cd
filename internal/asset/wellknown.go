package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDPolygon  = 137
	ChainIDArbitrum = 42161
	ChainIDOptimism = 10
	ChainIDBase     = 8453
	ChainIDBSC      = 56
)

// Well-known Polygon PoS tokens.
var (
	PolygonUSDC = NewAsset(ChainIDPolygon, common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), "USDC", 6, ClassStable)
	PolygonUSDT = NewAsset(ChainIDPolygon, common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"), "USDT", 6, ClassStable)
	PolygonDAI  = NewAsset(ChainIDPolygon, common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063"), "DAI", 18, ClassStable)
	PolygonWPOL = NewAsset(ChainIDPolygon, common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"), "WPOL", 18, ClassWrappedNative)
	PolygonWETH = NewAsset(ChainIDPolygon, common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"), "WETH", 18, ClassVolatile)
	PolygonWBTC = NewAsset(ChainIDPolygon, common.HexToAddress("0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6"), "WBTC", 8, ClassVolatile)
)

// PolygonRegistry returns a registry pre-populated with the well-known
// Polygon tokens.
func PolygonRegistry() *Registry {
	r := NewRegistry(ChainIDPolygon)
	for _, a := range []*Asset{PolygonUSDC, PolygonUSDT, PolygonDAI, PolygonWPOL, PolygonWETH, PolygonWBTC} {
		r.MustRegister(a)
	}
	return r
}
