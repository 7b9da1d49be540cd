// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow represents an opportunity in the list.
type OpportunityRow struct {
	Time           string
	Token          string
	Route          string // "buyVenue->sellVenue"
	SpreadBps      decimal.Decimal
	Adjusted       decimal.Decimal
	Confidence     float64
	Recommendation string
	Viable         bool
	Dispatched     bool
}

// OpportunitiesComponent renders the opportunities list.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	offset  int
	visible int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
		visible: 10,
	}
}

// Add adds a new opportunity to the top of the list.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// Len returns the number of stored rows.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// ScrollUp moves the view one row up.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the view one row down.
func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset < len(o.rows)-o.visible {
		o.offset++
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	if len(o.rows) == 0 {
		return headerStyle.Render("OPPORTUNITIES") + "\n\n  No spreads above threshold yet..."
	}

	viableStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	skipStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	sentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (last %d)", o.maxRows)))
	b.WriteString("\n")
	b.WriteString("┌──────────┬────────┬──────────────────────┬─────────┬──────────┬──────┬────────┐\n")
	b.WriteString("│   Time   │ Token  │ Buy -> Sell          │ Spread  │ Adjusted │ Conf │ Action │\n")
	b.WriteString("├──────────┼────────┼──────────────────────┼─────────┼──────────┼──────┼────────┤\n")

	end := min(o.offset+o.visible, len(o.rows))
	for _, row := range o.rows[o.offset:end] {
		style := skipStyle
		if row.Viable {
			style = viableStyle
		}
		action := style.Render(fmt.Sprintf("%-6s", row.Recommendation))
		if row.Dispatched {
			action = sentStyle.Render(fmt.Sprintf("%-6s", row.Recommendation))
		}

		b.WriteString(fmt.Sprintf("│ %8s │ %-6s │ %-20s │%8s │%9s │ %4.2f │ %s │\n",
			row.Time,
			truncate(row.Token, 6),
			truncate(row.Route, 20),
			fmt.Sprintf("%.1fbp", row.SpreadBps.InexactFloat64()),
			fmt.Sprintf("$%.2f", row.Adjusted.InexactFloat64()),
			row.Confidence,
			action,
		))
	}

	b.WriteString("└──────────┴────────┴──────────────────────┴─────────┴──────────┴──────┴────────┘")
	if len(o.rows) > o.visible {
		b.WriteString(skipStyle.Render(fmt.Sprintf("\n  %d-%d of %d", o.offset+1, end, len(o.rows))))
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "~"
}
