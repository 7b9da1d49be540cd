// Package blockchain implements the endpoint pool and chain access for one EVM network.
package blockchain

import (
	"context"

	"github.com/fd1az/dex-spread-monitor/business/blockchain/app"
	blockchainDI "github.com/fd1az/dex-spread-monitor/business/blockchain/di"
	"github.com/fd1az/dex-spread-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-spread-monitor/business/blockchain/infra/ethereum"
	"github.com/fd1az/dex-spread-monitor/internal/config"
	"github.com/fd1az/dex-spread-monitor/internal/di"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
	"github.com/fd1az/dex-spread-monitor/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct {
	services di.ServiceRegistry
}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.Dialer, func(sr di.ServiceRegistry) app.Dialer {
		return ethereum.NewDialer()
	})

	di.RegisterToken(c, blockchainDI.Pool, func(sr di.ServiceRegistry) *app.Pool {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pool, err := app.NewPool(PoolConfigFrom(cfg.Network), blockchainDI.GetDialer(sr), log)
		if err != nil {
			panic("failed to create endpoint pool: " + err.Error())
		}
		return pool
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracleCfg := ethereum.DefaultGasOracleConfig()
		if cfg.Network.GasCacheTTL > 0 {
			oracleCfg.CacheTTL = cfg.Network.GasCacheTTL
		}
		if cfg.Network.MaxGasPriceGwei > 0 {
			oracleCfg.MaxGasPrice = domain.GasPriceFromGwei(cfg.Network.MaxGasPriceGwei).Wei
		}

		oracle, err := ethereum.NewGasOracle(oracleCfg, blockchainDI.GetPool(sr), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetPool(sr), blockchainDI.GetGasOracle(sr))
	})

	return nil
}

// Startup probes the RPC candidates and fills the endpoint pool.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	m.services = mono.Services()

	pool := blockchainDI.GetPool(m.services)
	if err := pool.Initialize(ctx, cfg.Network.RPCCandidates); err != nil {
		return err
	}

	if hs := mono.Health(); hs != nil {
		hs.RegisterCheck("rpc_pool", pool.HealthCheck)
	}

	log.Info(ctx, "blockchain module started", "chain_id", cfg.Network.ChainID, "network", cfg.Network.Name)
	return nil
}

// Close stops the gas oracle and releases every RPC client.
func (m *Module) Close(ctx context.Context) error {
	if m.services == nil {
		return nil
	}
	var err error
	if c, ok := blockchainDI.GetGasOracle(m.services).(interface{ Close() error }); ok {
		err = c.Close()
	}
	blockchainDI.GetPool(m.services).Close()
	return err
}

// PoolConfigFrom maps network settings onto pool settings.
func PoolConfigFrom(n config.NetworkConfig) app.PoolConfig {
	pc := app.DefaultPoolConfig(n.ChainID)
	if n.ProbeConcurrency > 0 {
		pc.ProbeConcurrency = n.ProbeConcurrency
	}
	if n.TargetPoolSize > 0 {
		pc.TargetSize = n.TargetPoolSize
	}
	if n.ProbeTimeout > 0 {
		pc.ProbeTimeout = n.ProbeTimeout
	}
	if n.CallTimeout > 0 {
		pc.CallTimeout = n.CallTimeout
	}
	if n.RetryInitialBackoff > 0 {
		pc.InitialBackoff = n.RetryInitialBackoff
	}
	if n.RetryMaxBackoff > 0 {
		pc.MaxBackoff = n.RetryMaxBackoff
	}
	pc.RequestsPerSecond = n.RequestsPerSecond
	if n.RequestBurst > 0 {
		pc.RequestBurst = n.RequestBurst
	}
	return pc
}
