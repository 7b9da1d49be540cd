package infra

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/dex-spread-monitor/business/arbitrage/app"
	"github.com/fd1az/dex-spread-monitor/pkg/ui"
	"github.com/fd1az/dex-spread-monitor/pkg/ui/components"
)

// MessageSender delivers messages to a running Bubble Tea program.
type MessageSender interface {
	Send(msg tea.Msg)
}

// TUIReporter implements app.Reporter by forwarding cycle results to the
// dashboard.
type TUIReporter struct {
	program MessageSender
}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter(program MessageSender) *TUIReporter {
	return &TUIReporter{program: program}
}

// Start marks the monitor step of the startup screen as running.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.program.Send(ui.StartupMsg{Step: "monitor", Status: "connecting"})
	return nil
}

// ReportCycle sends the cycle and the endpoint pool snapshot to the dashboard.
func (r *TUIReporter) ReportCycle(report app.CycleReport) {
	r.program.Send(EndpointsMessage(report))
	r.program.Send(CycleMessage(report))
}

// Stop is a no-op; the program is owned by main.
func (r *TUIReporter) Stop() error {
	return nil
}

// CycleMessage converts a cycle report into a dashboard message.
func CycleMessage(report app.CycleReport) ui.CycleMsg {
	dispatched := make(map[string]bool, len(report.Dispatched))
	for _, opp := range report.Dispatched {
		dispatched[opp.ID] = true
	}

	t := report.Totals
	return ui.CycleMsg{
		Cycle:        report.Cycle,
		BlockNumber:  report.BlockNumber,
		GasPriceGwei: report.GasPriceGwei,
		NativeUSD:    report.NativeUSD,
		FetchOK:      report.FetchOK,
		FetchFailed:  report.FetchFailed,
		Duration:     report.Duration,
		Rotated:      report.Rotated,
		Candidates:   report.Candidates,
		Dispatched:   dispatched,
		Stats: components.Stats{
			Cycles:      t.Cycles,
			Checks:      t.Checks,
			Found:       t.Found,
			Viable:      t.Viable,
			Dispatched:  t.Dispatched,
			Suppressed:  t.Suppressed,
			FetchOK:     t.FetchOK,
			FetchFailed: t.FetchFailed,
			Rotations:   t.Rotations,
		},
		Err: report.Err,
	}
}

// EndpointsMessage converts the pool snapshot of a cycle report.
func EndpointsMessage(report app.CycleReport) ui.EndpointsMsg {
	pool := report.Pool
	endpoints := make([]components.EndpointStatus, 0, len(pool.Endpoints))
	for i, e := range pool.Endpoints {
		endpoints = append(endpoints, components.EndpointStatus{
			URL:       e.URL,
			Active:    i == pool.ActiveIndex,
			Healthy:   e.Healthy,
			Latency:   e.Latency,
			LastBlock: e.BlockHeight,
		})
	}
	return ui.EndpointsMsg{Endpoints: endpoints, Failovers: pool.Failovers}
}
