package app

import (
	"context"

	"github.com/fd1az/dex-spread-monitor/business/blockchain/domain"
)

// BlockchainService is the entry point other modules use for chain access.
type BlockchainService struct {
	pool      *Pool
	gasOracle GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(pool *Pool, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		pool:      pool,
		gasOracle: gasOracle,
	}
}

// Pool returns the endpoint pool for callers issuing their own contract calls.
func (s *BlockchainService) Pool() *Pool {
	return s.pool
}

// GasPrice returns the current gas price.
func (s *BlockchainService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GasPrice(ctx)
}

// LatestBlock returns the head block number seen by the active endpoint.
func (s *BlockchainService) LatestBlock(ctx context.Context) (uint64, error) {
	return Call(ctx, s.pool, "eth_blockNumber", func(ctx context.Context, c Client) (uint64, error) {
		return c.BlockNumber(ctx)
	})
}

// Rotate switches to the next healthy endpoint.
func (s *BlockchainService) Rotate(ctx context.Context) error {
	return s.pool.Rotate(ctx)
}

// Reinitialize re-probes the candidate list.
func (s *BlockchainService) Reinitialize(ctx context.Context) error {
	return s.pool.Reinitialize(ctx)
}

// Status returns the endpoint pool snapshot.
func (s *BlockchainService) Status() domain.PoolStatus {
	return s.pool.Status()
}
