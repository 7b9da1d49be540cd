// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/dex-spread-monitor/business/blockchain/app"
	"github.com/fd1az/dex-spread-monitor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
	Pool              = di.NewToken[*app.Pool]("blockchain.Pool")
)

// Private dependency tokens - internal to blockchain module
var (
	Dialer    = di.NewToken[app.Dialer]("blockchain:dialer")
	GasOracle = di.NewToken[app.GasOracle]("blockchain:gasOracle")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetPool(c di.ServiceRegistry) *app.Pool {
	return di.GetToken(c, Pool)
}

func GetDialer(c di.ServiceRegistry) app.Dialer {
	return di.GetToken(c, Dialer)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
