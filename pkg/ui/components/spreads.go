package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// SpreadRow is the latest best spread seen for one token.
type SpreadRow struct {
	Token     string
	BuyVenue  string
	BuyPrice  decimal.Decimal
	SellVenue string
	SellPrice decimal.Decimal
	SpreadBps decimal.Decimal
}

// CostBreakdown holds model-calculated cost data for display.
type CostBreakdown struct {
	Pair        string
	NotionalUSD float64
	GrossProfit float64
	Decayed     float64
	GasCostUSD  float64
	Fees        float64
	Slippage    float64
	Ancillary   float64
	Adjusted    float64
	Window      string
	ExecTime    string
	Viable      bool
}

// SpreadsComponent renders the per-token spread table.
type SpreadsComponent struct {
	rows          map[string]SpreadRow
	costBreakdown *CostBreakdown
}

// NewSpreadsComponent creates a new spreads component.
func NewSpreadsComponent() *SpreadsComponent {
	return &SpreadsComponent{rows: make(map[string]SpreadRow)}
}

// Update stores the latest spread for a token.
func (s *SpreadsComponent) Update(row SpreadRow) {
	s.rows[row.Token] = row
}

// SetCostBreakdown sets the cost breakdown of the best candidate.
func (s *SpreadsComponent) SetCostBreakdown(breakdown CostBreakdown) {
	s.costBreakdown = &breakdown
}

// View renders the spreads component.
func (s *SpreadsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var b strings.Builder
	b.WriteString(headerStyle.Render("SPREADS"))
	b.WriteString("\n\n")

	if len(s.rows) == 0 {
		b.WriteString(dimStyle.Render("  Waiting for the first cycle..."))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-7s  %-22s  %-22s  %10s\n", "Token", "Buy", "Sell", "Spread"))
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 66)) + "\n")

	tokens := make([]string, 0, len(s.rows))
	for t := range s.rows {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	for _, t := range tokens {
		row := s.rows[t]
		b.WriteString(fmt.Sprintf("  %-7s  %-22s  %-22s  %s\n",
			truncate(row.Token, 7),
			truncate(row.BuyVenue+" $"+row.BuyPrice.StringFixed(4), 22),
			truncate(row.SellVenue+" $"+row.SellPrice.StringFixed(4), 22),
			positiveStyle.Render(fmt.Sprintf("%7.1f bp", row.SpreadBps.InexactFloat64())),
		))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 66)) + "\n")

	cb := s.costBreakdown
	if cb == nil {
		b.WriteString(dimStyle.Render("  Waiting for cost analysis..."))
		return b.String()
	}

	if cb.Viable {
		b.WriteString(headerStyle.Render("  BEST CANDIDATE: VIABLE"))
	} else {
		b.WriteString(headerStyle.Render("  BEST CANDIDATE: NOT VIABLE"))
	}
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Pair: %s\n", dimStyle.Render(cb.Pair)))
	b.WriteString(fmt.Sprintf("  Notional: %s\n", dimStyle.Render(fmt.Sprintf("$%.0f", cb.NotionalUSD))))
	b.WriteString(fmt.Sprintf("  Gross: %s  decayed %s\n",
		warnStyle.Render(fmt.Sprintf("$%.2f", cb.GrossProfit)),
		warnStyle.Render(fmt.Sprintf("$%.2f", cb.Decayed))))
	b.WriteString(fmt.Sprintf("  Gas: %s  Fees: %s  Slippage: %s  Other: %s\n",
		negativeStyle.Render(fmt.Sprintf("-$%.2f", cb.GasCostUSD)),
		negativeStyle.Render(fmt.Sprintf("-$%.2f", cb.Fees)),
		negativeStyle.Render(fmt.Sprintf("-$%.2f", cb.Slippage)),
		negativeStyle.Render(fmt.Sprintf("-$%.2f", cb.Ancillary))))
	b.WriteString(fmt.Sprintf("  Execution %s within a %s window\n", cb.ExecTime, cb.Window))

	adjusted := negativeStyle.Render(fmt.Sprintf("$%.2f", cb.Adjusted))
	if cb.Viable {
		adjusted = positiveStyle.Render(fmt.Sprintf("+$%.2f", cb.Adjusted))
	}
	b.WriteString(fmt.Sprintf("  Adjusted profit: %s\n", adjusted))

	return b.String()
}
