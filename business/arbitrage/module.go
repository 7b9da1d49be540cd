// Package arbitrage implements spread detection, scoring and the polling loop.
package arbitrage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/dex-spread-monitor/business/arbitrage/di"
	"github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	blockchainDI "github.com/fd1az/dex-spread-monitor/business/blockchain/di"
	notifyDI "github.com/fd1az/dex-spread-monitor/business/notify/di"
	pricingDI "github.com/fd1az/dex-spread-monitor/business/pricing/di"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
	"github.com/fd1az/dex-spread-monitor/internal/config"
	"github.com/fd1az/dex-spread-monitor/internal/di"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
	"github.com/fd1az/dex-spread-monitor/internal/monolith"
)

// Module implements the arbitrage bounded context. The reporter is chosen by
// the caller (console or dashboard).
type Module struct {
	Reporter app.Reporter
}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		return m.Reporter
	})

	di.RegisterToken(c, arbitrageDI.Model, func(sr di.ServiceRegistry) *domain.Model {
		cfg := sr.Get("config").(*config.Config)
		return domain.NewModel(ModelParamsFrom(cfg))
	})

	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		detector, err := app.NewDetector(
			DetectorConfigFrom(cfg, registry),
			pricingDI.GetPricingService(sr),
			blockchainDI.GetBlockchainService(sr),
			arbitrageDI.GetModel(sr),
			notifyDI.GetDispatcher(sr),
			arbitrageDI.GetReporter(sr),
			log,
		)
		if err != nil {
			panic("failed to create detector: " + err.Error())
		}
		return detector
	})

	di.RegisterToken(c, arbitrageDI.Scheduler, func(sr di.ServiceRegistry) *app.Scheduler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewScheduler(app.SchedulerConfig{
			Interval:           cfg.Monitor.PollInterval,
			ExhaustedPause:     cfg.Monitor.ExhaustedPause,
			ResetCountersEvery: cfg.Monitor.ResetCountersEvery,
		},
			arbitrageDI.GetDetector(sr),
			blockchainDI.GetBlockchainService(sr),
			notifyDI.GetDispatcher(sr),
			log,
		)
	})

	return nil
}

// Startup builds the detector and registers the cycle health check.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	scheduler := arbitrageDI.GetScheduler(mono.Services())
	if hs := mono.Health(); hs != nil {
		hs.RegisterCheck("last_cycle", scheduler.HealthCheck)
	}

	log.Info(ctx, "arbitrage module started",
		"tokens", len(cfg.TrackedTokens()),
		"notional_usd", cfg.Monitor.NotionalUSD,
		"min_spread_bps", cfg.Monitor.MinSpreadBps,
		"poll_interval", cfg.Monitor.PollInterval.String(),
	)
	return nil
}

// DetectorConfigFrom maps monitor settings and tracked tokens onto the
// detector configuration.
func DetectorConfigFrom(cfg *config.Config, registry *asset.Registry) app.DetectorConfig {
	tracked := cfg.TrackedTokens()
	tokens := make([]app.TrackedToken, 0, len(tracked))
	for _, t := range tracked {
		a := registry.MustBySymbol(t.Symbol)
		tokens = append(tokens, app.TrackedToken{
			Asset: a,
			Profile: domain.TokenProfile{
				Class:       a.Class(),
				Reliability: t.Reliability,
				Volatility:  t.Volatility,
			},
		})
	}

	return app.DetectorConfig{
		Tokens:           tokens,
		NotionalUSD:      decimal.NewFromFloat(cfg.Monitor.NotionalUSD),
		MinSpreadBps:     decimal.NewFromFloat(cfg.Monitor.MinSpreadBps),
		MinLiquidityUSD:  decimal.NewFromFloat(cfg.Monitor.MinLiquidityUSD),
		TopN:             cfg.Monitor.TopN,
		VenueConcurrency: cfg.Monitor.VenueConcurrency,
		BatchPause:       cfg.Monitor.BatchPause,
		RotateBelowRate:  cfg.Monitor.RotateBelowRate,
	}
}

// ModelParamsFrom overlays configured model constants on the defaults.
// Zero values keep the default.
func ModelParamsFrom(cfg *config.Config) domain.ModelParams {
	p := domain.DefaultModelParams()
	n, mc := cfg.Network, cfg.Model

	if n.BlockTime > 0 {
		p.BlockTime = n.BlockTime
	}
	if n.Confirmations > 0 {
		p.Confirmations = n.Confirmations
	}

	if mc.GasEstimationOverhead > 0 {
		p.GasEstimationOverhead = mc.GasEstimationOverhead
	}
	if mc.NetworkPropagation > 0 {
		p.NetworkPropagation = mc.NetworkPropagation
	}
	if mc.RPCRoundTrip > 0 {
		p.RPCRoundTrip = mc.RPCRoundTrip
	}
	if mc.VenueProcessing > 0 {
		p.VenueProcessing = mc.VenueProcessing
	}
	if mc.MultiHopTimeFactor > 0 {
		p.MultiHopTimeFactor = mc.MultiHopTimeFactor
	}
	if mc.CongestionTimeFactor > 0 {
		p.CongestionTimeFactor = mc.CongestionTimeFactor
	}
	if len(mc.CongestedHoursUTC) > 0 {
		p.CongestedHoursUTC = mc.CongestedHoursUTC
	}

	if mc.GasUnitsDirect > 0 {
		p.GasUnitsDirect = mc.GasUnitsDirect
	}
	if mc.GasUnitsMultiHop > 0 {
		p.GasUnitsMultiHop = mc.GasUnitsMultiHop
	}
	if mc.FallbackGasPriceGwei > 0 {
		p.FallbackGasPriceGwei = mc.FallbackGasPriceGwei
	}
	if mc.FallbackNativeUSD > 0 {
		p.FallbackNativeUSD = decimal.NewFromFloat(mc.FallbackNativeUSD)
	}
	if mc.AncillaryCostUSD > 0 {
		p.AncillaryCostUSD = decimal.NewFromFloat(mc.AncillaryCostUSD)
	}

	if mc.MinConfidence > 0 {
		p.MinConfidence = mc.MinConfidence
	}
	if mc.MinProfitUSD > 0 {
		p.MinProfitUSD = decimal.NewFromFloat(mc.MinProfitUSD)
	}
	if mc.MinROIPercent > 0 {
		p.MinROIPercent = decimal.NewFromFloat(mc.MinROIPercent)
	}
	if mc.ExecuteProfitUSD > 0 {
		p.ExecuteProfitUSD = decimal.NewFromFloat(mc.ExecuteProfitUSD)
	}
	if mc.ImmediateUSD > 0 {
		p.ImmediateUSD = decimal.NewFromFloat(mc.ImmediateUSD)
	}

	return p
}
