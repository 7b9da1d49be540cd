package ui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorPrimary = lipgloss.Color("#7C3AED")
	ColorOK      = lipgloss.Color("#10B981")
	ColorDanger  = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorBorder  = lipgloss.Color("#374151")
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary).
			Padding(0, 2)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// Endpoint and fetch health in the status bar.
	StatusHealthy = lipgloss.NewStyle().
			Foreground(ColorOK).
			Bold(true)

	StatusDown = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	ActivityStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	// Startup step states.
	StepDone    = lipgloss.NewStyle().Foreground(ColorOK)
	StepWorking = lipgloss.NewStyle().Foreground(ColorWarning)
	StepFailed  = lipgloss.NewStyle().Foreground(ColorDanger)

	MutedValue = lipgloss.NewStyle().
			Foreground(ColorMuted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)
)
