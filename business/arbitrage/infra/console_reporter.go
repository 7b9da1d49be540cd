// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/dex-spread-monitor/business/arbitrage/app"
	"github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
)

const rule = "================================================================================"
const thinRule = "--------------------------------------------------------------------------------"

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter. A nil writer means stdout.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "DEX Spread Monitor Started")
	fmt.Fprintln(r.out, "==========================")
	return nil
}

// ReportCycle prints a one-line cycle summary followed by a block per
// dispatched opportunity.
func (r *ConsoleReporter) ReportCycle(report app.CycleReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "[%s] cycle #%d block #%d gas %.1f gwei | quotes %d/%d (%.0f%%) | candidates %d viable %d sent %d | %s\n",
		report.StartedAt.Format("15:04:05"),
		report.Cycle,
		report.BlockNumber,
		report.GasPriceGwei,
		report.FetchOK,
		report.FetchOK+report.FetchFailed,
		report.SuccessRate()*100,
		len(report.Candidates),
		countViable(report.Candidates),
		len(report.Dispatched),
		report.Duration.Round(time.Millisecond),
	)
	if report.Rotated {
		fmt.Fprintf(r.out, "  endpoint rotated, active %s (failovers %d)\n", report.Pool.Active, report.Pool.Failovers)
	}
	if report.Err != nil {
		fmt.Fprintf(r.out, "  error: %v\n", report.Err)
	}

	for _, opp := range report.Dispatched {
		r.printOpportunity(opp)
	}
}

func (r *ConsoleReporter) printOpportunity(opp *domain.Opportunity) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "SPREAD OPPORTUNITY  %s\n", string(opp.Recommendation))
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "ID:             %s\n", opp.ID)
	fmt.Fprintf(r.out, "Block:          #%d\n", opp.BlockNumber)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.DetectedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Pair:           %s\n", opp.Pair())
	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintln(r.out, "PRICES")
	fmt.Fprintf(r.out, "  Buy  %-10s $%s (liq $%s)\n", opp.Buy.VenueID, opp.Buy.PriceUSD.StringFixed(4), opp.Buy.LiquidityUSD.StringFixed(0))
	fmt.Fprintf(r.out, "  Sell %-10s $%s (liq $%s)\n", opp.Sell.VenueID, opp.Sell.PriceUSD.StringFixed(4), opp.Sell.LiquidityUSD.StringFixed(0))
	fmt.Fprintf(r.out, "  Spread:         %s bps\n", opp.Spread.BasisPoints.StringFixed(2))
	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintln(r.out, "COSTS")
	fmt.Fprintf(r.out, "  Notional:       $%s\n", opp.Notional.StringFixed(2))
	gas := opp.Costs.Gas
	fallback := ""
	if gas.Fallback {
		fallback = " (fallback)"
	}
	fmt.Fprintf(r.out, "  Gas:            %d units, %s native ($%s)%s\n", gas.Units, gas.Native.StringFixed(6), gas.USD.StringFixed(4), fallback)
	fmt.Fprintf(r.out, "  Fees:           $%s\n", opp.Costs.Fees.StringFixed(4))
	fmt.Fprintf(r.out, "  Slippage:       $%s\n", opp.Costs.Slippage.StringFixed(4))
	fmt.Fprintf(r.out, "  Ancillary:      $%s\n", opp.Costs.Ancillary.StringFixed(4))
	fmt.Fprintf(r.out, "  Total:          $%s\n", opp.Costs.Total.StringFixed(4))
	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintln(r.out, "TIMING")
	fmt.Fprintf(r.out, "  Execution:      %s\n", opp.Timing.ExecutionTime.Round(10*time.Millisecond))
	fmt.Fprintf(r.out, "  Window:         %s\n", opp.Timing.Window.Round(10*time.Millisecond))
	fmt.Fprintf(r.out, "  Decay:          %.4f/s (%s retained)\n", opp.Timing.DecayRate, opp.Timing.Remaining.StringFixed(4))
	fmt.Fprintln(r.out, thinRule)
	fmt.Fprintln(r.out, "PROFIT")
	fmt.Fprintf(r.out, "  Gross:          $%s\n", opp.GrossProfit.StringFixed(2))
	fmt.Fprintf(r.out, "  Adjusted:       $%s (%s%%)\n", opp.AdjustedProfit.StringFixed(2), opp.ROIPercent.StringFixed(3))
	fmt.Fprintf(r.out, "  Confidence:     %.0f%%\n", opp.Confidence*100)
	fmt.Fprintln(r.out, rule)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "DEX Spread Monitor Stopped")
	return nil
}

func countViable(opps []*domain.Opportunity) int {
	n := 0
	for _, o := range opps {
		if o.Viable {
			n++
		}
	}
	return n
}
