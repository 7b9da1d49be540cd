package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// EndpointStatus represents one RPC endpoint's status.
type EndpointStatus struct {
	URL       string
	Active    bool
	Healthy   bool
	Latency   time.Duration
	LastBlock uint64
}

// StatusComponent renders the endpoint pool.
type StatusComponent struct {
	endpoints []EndpointStatus
	failovers uint64
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{
		endpoints: make([]EndpointStatus, 0),
	}
}

// Update replaces the pool snapshot.
func (s *StatusComponent) Update(endpoints []EndpointStatus, failovers uint64) {
	s.endpoints = endpoints
	s.failovers = failovers
}

// Active returns the active endpoint, if any.
func (s *StatusComponent) Active() (EndpointStatus, bool) {
	for _, e := range s.endpoints {
		if e.Active {
			return e, true
		}
	}
	return EndpointStatus{}, false
}

// View renders the status component.
func (s *StatusComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("ENDPOINTS (failovers: %d)", s.failovers)))
	b.WriteString("\n")

	if len(s.endpoints) == 0 {
		b.WriteString(mutedStyle.Render("  No endpoints"))
		return b.String()
	}

	for _, e := range s.endpoints {
		status := "● healthy"
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
		if !e.Healthy {
			status = "○ unhealthy"
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
		}

		marker := "  "
		if e.Active {
			marker = "▶ "
		}

		line := fmt.Sprintf("%s%s: %s", marker, truncate(e.URL, 40), style.Render(status))
		if e.Healthy && e.Latency > 0 {
			line += mutedStyle.Render(fmt.Sprintf(" (%s, #%d)", e.Latency.Round(time.Millisecond), e.LastBlock))
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}
