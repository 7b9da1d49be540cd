// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
)

// ChainReader reads AMM contract state. Missing pools and pairs are reported
// as the zero address, not as an error.
type ChainReader interface {
	// PairFor returns the constant-product pair for (a, b) registered in factory.
	PairFor(ctx context.Context, factory, a, b common.Address) (common.Address, error)

	// Reserves reads getReserves and token0 of a constant-product pair.
	Reserves(ctx context.Context, pair common.Address) (domain.PairReserves, error)

	// PoolFor returns the concentrated-liquidity pool for (a, b, fee).
	PoolFor(ctx context.Context, factory, a, b common.Address, fee uint32) (common.Address, error)

	// PoolState reads slot0, liquidity and token0 of a concentrated-liquidity pool.
	PoolState(ctx context.Context, pool common.Address) (domain.PoolState, error)

	// QuoteExactInputSingle simulates a single-pool swap on a QuoterV2.
	QuoteExactInputSingle(ctx context.Context, quoter, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error)

	// AmountsOut simulates a swap along path on a constant-product router.
	AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
}
