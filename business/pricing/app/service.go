package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

// PricingService exposes venue quoting to other modules.
type PricingService struct {
	quoter *Quoter
	ref    *ReferencePrices
	venues []domain.Venue
}

// NewPricingService creates a new PricingService over the enabled venues.
func NewPricingService(quoter *Quoter, ref *ReferencePrices, venues []domain.Venue) *PricingService {
	return &PricingService{
		quoter: quoter,
		ref:    ref,
		venues: venues,
	}
}

// Venues returns the enabled venues in configured order.
func (s *PricingService) Venues() []domain.Venue {
	return s.venues
}

// Quote prices token on venue for notionalUSD.
func (s *PricingService) Quote(ctx context.Context, token *asset.Asset, venue domain.Venue, notionalUSD decimal.Decimal) domain.Quote {
	return s.quoter.Quote(ctx, token, venue, notionalUSD)
}

// NativeUSD returns the native asset price and whether it is live.
func (s *PricingService) NativeUSD(ctx context.Context) (decimal.Decimal, bool) {
	return s.ref.NativeUSD(ctx)
}

// Close releases caches.
func (s *PricingService) Close() {
	s.quoter.Close()
	s.ref.Close()
}
