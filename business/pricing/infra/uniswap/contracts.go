// Package uniswap reads Uniswap V2 and V3 style AMM contracts.
package uniswap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Fee tiers in Uniswap V3 (in hundredths of a bip)
const (
	FeeTier001 = 100   // 0.01%
	FeeTier005 = 500   // 0.05%
	FeeTier030 = 3000  // 0.30%
	FeeTier100 = 10000 // 1.00%
)

// FactoryV2ABI covers getPair on a constant-product factory.
const FactoryV2ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"}
		],
		"name": "getPair",
		"outputs": [{"internalType": "address", "name": "pair", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// PairV2ABI covers getReserves and token0 on a constant-product pair.
const PairV2ABI = `[
	{
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "_reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "_reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "_blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// RouterV2ABI covers getAmountsOut on a constant-product router.
const RouterV2ABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// FactoryV3ABI covers getPool on a concentrated-liquidity factory.
const FactoryV3ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"},
			{"internalType": "uint24", "name": "fee", "type": "uint24"}
		],
		"name": "getPool",
		"outputs": [{"internalType": "address", "name": "pool", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// PoolV3ABI covers slot0, liquidity and token0 on a concentrated-liquidity pool.
const PoolV3ABI = `[
	{
		"inputs": [],
		"name": "slot0",
		"outputs": [
			{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
			{"internalType": "int24", "name": "tick", "type": "int24"},
			{"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
			{"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
			{"internalType": "bool", "name": "unlocked", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "liquidity",
		"outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// QuoterV2ABI is the ABI for the Uniswap V3 QuoterV2 contract.
// Only includes quoteExactInputSingle which we use for quotes.
const QuoterV2ABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct IQuoterV2.QuoteExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "quoteExactInputSingle",
		"outputs": [
			{"internalType": "uint256", "name": "amountOut", "type": "uint256"},
			{"internalType": "uint160", "name": "sqrtPriceX96After", "type": "uint160"},
			{"internalType": "uint32", "name": "initializedTicksCrossed", "type": "uint32"},
			{"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// QuoteExactInputSingleParams represents the input params for quoteExactInputSingle.
type QuoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int // uint24
	SqrtPriceLimitX96 *big.Int // uint160, 0 for no limit
}
