// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/dex-spread-monitor/business/pricing/app"
	"github.com/fd1az/dex-spread-monitor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	ChainReader     = di.NewToken[app.ChainReader]("pricing:chainReader")
	ReferencePrices = di.NewToken[*app.ReferencePrices]("pricing:referencePrices")
	Quoter          = di.NewToken[*app.Quoter]("pricing:quoter")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetChainReader(c di.ServiceRegistry) app.ChainReader {
	return di.GetToken(c, ChainReader)
}

func GetReferencePrices(c di.ServiceRegistry) *app.ReferencePrices {
	return di.GetToken(c, ReferencePrices)
}

func GetQuoter(c di.ServiceRegistry) *app.Quoter {
	return di.GetToken(c, Quoter)
}
