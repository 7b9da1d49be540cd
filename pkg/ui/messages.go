package ui

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	"github.com/fd1az/dex-spread-monitor/pkg/ui/components"
)

// Message types for TUI updates

// CycleMsg is sent after every polling cycle.
type CycleMsg struct {
	Cycle        uint64
	BlockNumber  uint64
	GasPriceGwei float64
	NativeUSD    decimal.Decimal
	FetchOK      int
	FetchFailed  int
	Duration     time.Duration
	Rotated      bool
	Candidates   []*domain.Opportunity
	Dispatched   map[string]bool // opportunity id -> sent
	Stats        components.Stats
	Err          error
}

// EndpointsMsg carries the endpoint pool snapshot.
type EndpointsMsg struct {
	Endpoints []components.EndpointStatus
	Failovers uint64
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "config", "endpoints", "venues", "monitor"
	Status  string // "connecting", "connected", "failed"
	Message string
}
