// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/dex-spread-monitor/business/blockchain/domain"
	pricingDomain "github.com/fd1az/dex-spread-monitor/business/pricing/domain"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

// VenueQuoter prices tokens on venues. Implemented by the pricing service.
type VenueQuoter interface {
	Venues() []pricingDomain.Venue
	Quote(ctx context.Context, token *asset.Asset, venue pricingDomain.Venue, notionalUSD decimal.Decimal) pricingDomain.Quote
	NativeUSD(ctx context.Context) (decimal.Decimal, bool)
}

// Chain exposes the endpoint pool operations the detector needs.
// Implemented by the blockchain service.
type Chain interface {
	GasPrice(ctx context.Context) (*blockchainDomain.GasPrice, error)
	LatestBlock(ctx context.Context) (uint64, error)
	Rotate(ctx context.Context) error
	Reinitialize(ctx context.Context) error
	Status() blockchainDomain.PoolStatus
}

// Dispatcher delivers alerts. Implemented by the notify module.
type Dispatcher interface {
	// Dispatch sends a ranked opportunity. It returns sent=false when the
	// alert was suppressed as a duplicate.
	Dispatch(ctx context.Context, opp *domain.Opportunity) (sent bool, err error)

	// Alert sends a plain operational message.
	Alert(ctx context.Context, message string) error
}

// CycleReport summarizes one polling cycle for reporters.
type CycleReport struct {
	Cycle        uint64
	StartedAt    time.Time
	Duration     time.Duration
	BlockNumber  uint64
	GasPriceGwei float64
	NativeUSD    decimal.Decimal
	Tokens       int
	FetchOK      int
	FetchFailed  int
	Candidates   []*domain.Opportunity // every scored spread, viable or not
	Dispatched   []*domain.Opportunity
	Rotated      bool
	Pool         blockchainDomain.PoolStatus
	Totals       Stats
	Err          error
}

// SuccessRate returns the share of successful quote fetches in the cycle.
func (r CycleReport) SuccessRate() float64 {
	total := r.FetchOK + r.FetchFailed
	if total == 0 {
		return 1
	}
	return float64(r.FetchOK) / float64(total)
}

// Reporter renders cycle results for an operator.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportCycle publishes the outcome of one cycle.
	ReportCycle(report CycleReport)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
