// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"

	"github.com/fd1az/dex-spread-monitor/business/blockchain/domain"
)

// Client is the slice of a JSON-RPC client the monitor needs from one endpoint.
// *ethclient.Client satisfies it.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Dialer opens a Client for an endpoint URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Client, error)
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GasPrice returns the current gas price, never above the configured cap.
	GasPrice(ctx context.Context) (*domain.GasPrice, error)
}
