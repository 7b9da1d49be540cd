// Package pricing implements per-venue price and liquidity quoting.
package pricing

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDI "github.com/fd1az/dex-spread-monitor/business/blockchain/di"
	"github.com/fd1az/dex-spread-monitor/business/pricing/app"
	pricingDI "github.com/fd1az/dex-spread-monitor/business/pricing/di"
	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/business/pricing/infra/uniswap"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
	"github.com/fd1az/dex-spread-monitor/internal/config"
	"github.com/fd1az/dex-spread-monitor/internal/di"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
	"github.com/fd1az/dex-spread-monitor/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct {
	services di.ServiceRegistry
}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.ChainReader, func(sr di.ServiceRegistry) app.ChainReader {
		log := sr.Get("logger").(logger.LoggerInterface)

		reader, err := uniswap.NewReader(blockchainDI.GetPool(sr), log)
		if err != nil {
			panic("failed to create contract reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, pricingDI.ReferencePrices, func(sr di.ServiceRegistry) *app.ReferencePrices {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		settlement := registry.MustBySymbol(cfg.Routing.Settlement)
		wrapped, _ := registry.WrappedNative()

		refVenue, ok := venueByID(cfg, cfg.Routing.ReferenceVenue)
		if !ok {
			refVenue = VenuesFrom(cfg.EnabledVenues())[0]
		}

		valuer := app.NewValuer(
			pricingDI.GetChainReader(sr),
			ActiveLiquidityFrom(cfg.Model.ActiveLiquidity),
			decimal.NewFromFloat(cfg.Model.CLLiquidityScale),
		)

		return app.NewReferencePrices(
			valuer,
			refVenue,
			settlement,
			wrapped,
			decimal.NewFromFloat(cfg.Model.FallbackNativeUSD),
			cfg.Routing.ReferenceTTL,
			log,
		)
	})

	di.RegisterToken(c, pricingDI.Quoter, func(sr di.ServiceRegistry) *app.Quoter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		bridges := make([]*asset.Asset, 0, len(cfg.Routing.Bridges))
		for _, sym := range cfg.Routing.Bridges {
			bridges = append(bridges, registry.MustBySymbol(sym))
		}

		q, err := app.NewQuoter(app.QuoterConfig{
			Bridges:            bridges,
			Settlement:         registry.MustBySymbol(cfg.Routing.Settlement),
			MinLiquidityUSD:    decimal.NewFromFloat(cfg.Monitor.MinLiquidityUSD),
			StableLiquidityUSD: decimal.NewFromFloat(cfg.Model.StableLiquidityUSD),
			MultiHopEfficiency: decimal.NewFromFloat(cfg.Model.MultiHopEfficiency),
			ActiveLiquidity:    ActiveLiquidityFrom(cfg.Model.ActiveLiquidity),
			CLLiquidityScale:   decimal.NewFromFloat(cfg.Model.CLLiquidityScale),
			MaxSlippage:        decimal.NewFromFloat(cfg.Model.MaxSlippage),
			CacheTTL:           cfg.Monitor.QuoteCacheTTL,
		}, pricingDI.GetChainReader(sr), pricingDI.GetReferencePrices(sr), log)
		if err != nil {
			panic("failed to create quoter: " + err.Error())
		}
		return q
	})

	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		return app.NewPricingService(
			pricingDI.GetQuoter(sr),
			pricingDI.GetReferencePrices(sr),
			VenuesFrom(cfg.EnabledVenues()),
		)
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	m.services = mono.Services()

	svc := pricingDI.GetPricingService(m.services)
	native, live := svc.NativeUSD(ctx)

	ids := make([]string, 0, len(svc.Venues()))
	for _, v := range svc.Venues() {
		ids = append(ids, v.ID)
	}

	log.Info(ctx, "pricing module started",
		"venues", ids,
		"native_usd", native.String(),
		"native_live", live,
	)
	return nil
}

// Close stops the quote and reference caches.
func (m *Module) Close(ctx context.Context) error {
	if m.services != nil {
		pricingDI.GetPricingService(m.services).Close()
	}
	return nil
}

// VenuesFrom converts venue settings to domain venues.
func VenuesFrom(cfgs []config.VenueConfig) []domain.Venue {
	venues := make([]domain.Venue, 0, len(cfgs))
	for _, vc := range cfgs {
		venues = append(venues, domain.Venue{
			ID:       vc.ID,
			Name:     vc.Name,
			Protocol: domain.Protocol(vc.Protocol),
			Factory:  common.HexToAddress(vc.Factory),
			Quoter:   hexOrZero(vc.Quoter),
			Router:   hexOrZero(vc.Router),
			FeeTiers: vc.FeeTiers,
			FeeBps:   vc.FeeBps,
		})
	}
	return venues
}

func venueByID(cfg *config.Config, id string) (domain.Venue, bool) {
	for _, v := range VenuesFrom(cfg.EnabledVenues()) {
		if v.ID == id {
			return v, true
		}
	}
	return domain.Venue{}, false
}

func hexOrZero(s string) common.Address {
	if s == "" {
		return common.Address{}
	}
	return common.HexToAddress(s)
}

// ActiveLiquidityFrom parses fee tier keyed fractions, skipping bad keys.
func ActiveLiquidityFrom(m map[string]float64) map[uint32]decimal.Decimal {
	out := make(map[uint32]decimal.Decimal, len(m))
	for k, v := range m {
		tier, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			continue
		}
		out[uint32(tier)] = decimal.NewFromFloat(v)
	}
	return out
}
