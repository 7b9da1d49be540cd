package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds detector counters for display.
type Stats struct {
	Cycles      int64
	Checks      int64
	Found       int64
	Viable      int64
	Dispatched  int64
	Suppressed  int64
	FetchOK     int64
	FetchFailed int64
	Rotations   int64
	LastCycleMs int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	successRate := float64(100)
	if total := s.stats.FetchOK + s.stats.FetchFailed; total > 0 {
		successRate = float64(s.stats.FetchOK) / float64(total) * 100
	}

	failedDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.FetchFailed))
	if s.stats.FetchFailed > 0 {
		failedDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.FetchFailed))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Cycles: %s  │  Checks: %s  │  Found: %s  │  Viable: %s  │  Sent: %s (%s dup)\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Cycles)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Checks)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Found)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Viable)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Dispatched)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Suppressed)),
		) +
		fmt.Sprintf("Fetch success: %s  │  Failed: %s  │  Rotations: %s  │  Last cycle: %s",
			valueStyle.Render(fmt.Sprintf("%.1f%%", successRate)),
			failedDisplay,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Rotations)),
			valueStyle.Render(fmt.Sprintf("%dms", s.stats.LastCycleMs)),
		)
}
