package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	"github.com/fd1az/dex-spread-monitor/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Probing endpoints
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var startupOrder = []string{"config", "endpoints", "venues", "monitor"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	spreads       *components.SpreadsComponent
	opportunities *components.OpportunitiesComponent
	stats         *components.StatsComponent
	status        *components.StatusComponent
	keys          KeyMap

	// Phase state
	phase        Phase
	welcomeStart time.Time
	onStart      func()
	started      bool

	// State
	ready       bool
	quitting    bool
	paused      bool // freeze the dashboard; cycles keep running
	width       int
	height      int
	cycle       uint64
	block       uint64
	gasPrice    float64
	nativeUSD   string
	successRate float64
	lastUpdate  time.Time
	errors      []ErrorEntry // last 3
	logs        []string

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time

	activityFeed []string
}

// New creates a new TUI model. onStart is invoked once when the welcome
// screen completes; it should start the modules in the background.
func New(onStart func()) Model {
	now := time.Now()
	return Model{
		spreads:       components.NewSpreadsComponent(),
		opportunities: components.NewOpportunitiesComponent(50),
		stats:         components.NewStatsComponent(),
		status:        components.NewStatusComponent(),
		keys:          DefaultKeyMap(),
		phase:         PhaseWelcome,
		welcomeStart:  now,
		onStart:       onStart,
		logs:          make([]string, 0, 5),
		errors:        make([]ErrorEntry, 0, 3),
		activityFeed:  make([]string, 0, 6),
		startupSteps: map[string]*StartupStep{
			"config":    {Name: "Loading configuration", Status: "done"},
			"endpoints": {Name: "Probing RPC endpoints", Status: "pending"},
			"venues":    {Name: "Loading venues", Status: "pending"},
			"monitor":   {Name: "Starting monitor", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if !m.started && m.onStart != nil {
		m.started = true
		go m.onStart()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.Errors):
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case CycleMsg:
		m.markStartup("monitor", "connected")
		if m.paused {
			return m, nil
		}
		m.applyCycle(msg)

	case EndpointsMsg:
		m.status.Update(msg.Endpoints, msg.Failovers)
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.pushError(msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		m.markStartup(msg.Step, msg.Status)
		if msg.Status == "failed" && msg.Message != "" {
			m.pushError(msg.Message)
		}
	}

	return m, nil
}

func (m *Model) applyCycle(msg CycleMsg) {
	m.cycle = msg.Cycle
	m.block = msg.BlockNumber
	m.gasPrice = msg.GasPriceGwei
	m.nativeUSD = msg.NativeUSD.StringFixed(4)
	m.lastUpdate = time.Now()

	total := msg.FetchOK + msg.FetchFailed
	m.successRate = 1
	if total > 0 {
		m.successRate = float64(msg.FetchOK) / float64(total)
	}

	stats := msg.Stats
	stats.LastCycleMs = msg.Duration.Milliseconds()
	m.stats.Update(stats)

	var best *domain.Opportunity
	for _, opp := range msg.Candidates {
		m.spreads.Update(components.SpreadRow{
			Token:     opp.Token.Symbol(),
			BuyVenue:  opp.Buy.VenueID,
			BuyPrice:  opp.Buy.PriceUSD,
			SellVenue: opp.Sell.VenueID,
			SellPrice: opp.Sell.PriceUSD,
			SpreadBps: opp.Spread.BasisPoints,
		})
		m.opportunities.Add(components.OpportunityRow{
			Time:           opp.DetectedAt.Format("15:04:05"),
			Token:          opp.Token.Symbol(),
			Route:          opp.Buy.VenueID + "->" + opp.Sell.VenueID,
			SpreadBps:      opp.Spread.BasisPoints,
			Adjusted:       opp.AdjustedProfit,
			Confidence:     opp.Confidence,
			Recommendation: opp.Recommendation.ShortString(),
			Viable:         opp.Viable,
			Dispatched:     msg.Dispatched[opp.ID],
		})
		if best == nil || opp.Score().GreaterThan(best.Score()) ||
			(best.Score().IsZero() && opp.Spread.BasisPoints.GreaterThan(best.Spread.BasisPoints)) {
			best = opp
		}
	}
	if best != nil {
		m.spreads.SetCostBreakdown(costBreakdown(best))
	}

	activity := fmt.Sprintf("Cycle #%d: %d/%d quotes, %d candidates, %d sent",
		msg.Cycle, msg.FetchOK, total, len(msg.Candidates), len(msg.Dispatched))
	if msg.Rotated {
		activity += ", rotated endpoint"
	}
	m.activityFeed = addActivity(m.activityFeed, activity)

	if msg.Err != nil {
		m.pushError(msg.Err.Error())
	}
}

func costBreakdown(opp *domain.Opportunity) components.CostBreakdown {
	return components.CostBreakdown{
		Pair:        opp.Pair(),
		NotionalUSD: opp.Notional.InexactFloat64(),
		GrossProfit: opp.GrossProfit.InexactFloat64(),
		Decayed:     opp.GrossProfit.Mul(opp.Timing.Remaining).InexactFloat64(),
		GasCostUSD:  opp.Costs.Gas.USD.InexactFloat64(),
		Fees:        opp.Costs.Fees.InexactFloat64(),
		Slippage:    opp.Costs.Slippage.InexactFloat64(),
		Ancillary:   opp.Costs.Ancillary.InexactFloat64(),
		Adjusted:    opp.AdjustedProfit.InexactFloat64(),
		Window:      opp.Timing.Window.Round(100 * time.Millisecond).String(),
		ExecTime:    opp.Timing.ExecutionTime.Round(100 * time.Millisecond).String(),
		Viable:      opp.Viable,
	}
}

func (m *Model) markStartup(step, status string) {
	if s, ok := m.startupSteps[step]; ok {
		s.Status = status
	}
	if step == "monitor" && status == "connected" {
		m.phase = PhaseDashboard
	}
}

func (m *Model) pushError(message string) {
	m.logs = addLog(m.logs, "error", message)
	m.errors = append(m.errors, ErrorEntry{Message: message, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logs = append(logs, fmt.Sprintf("[%s] %s: %s", timestamp, level, message))
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	feed = append(feed, fmt.Sprintf("[%s] %s", timestamp, message))
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" DEX Spread Monitor "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.spreads.View() + "\n\n" + m.status.View()

	var right strings.Builder
	right.WriteString(m.renderActivityFeed())
	right.WriteString("\n\n")
	right.WriteString(m.opportunities.View())
	rightCol := right.String()

	if m.width > 120 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		rightBox := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, rightBox))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}

	b.WriteString("\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(ColorWarning).Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render("q: quit • c: clear • p: pause • e: clear errors • ↑↓: scroll"))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	cycleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(SectionStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for the first cycle..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		if strings.Contains(activity, "rotated") {
			sb.WriteString(ActivityStyle.Render("  " + activity))
		} else {
			sb.WriteString(cycleStyle.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := SectionStyle
	greenStyle := lipgloss.NewStyle().Foreground(ColorOK)

	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
   ██████╗ ███████╗██╗  ██╗    ███████╗██████╗ ██████╗ ███████╗ █████╗ ██████╗
   ██╔══██╗██╔════╝╚██╗██╔╝    ██╔════╝██╔══██╗██╔══██╗██╔════╝██╔══██╗██╔══██╗
   ██║  ██║█████╗   ╚███╔╝     ███████╗██████╔╝██████╔╝█████╗  ███████║██║  ██║
   ██║  ██║██╔══╝   ██╔██╗     ╚════██║██╔═══╝ ██╔══██╗██╔══╝  ██╔══██║██║  ██║
   ██████╔╝███████╗██╔╝ ██╗    ███████║██║     ██║  ██║███████╗██║  ██║██████╔╝
   ╚═════╝ ╚══════╝╚═╝  ╚═╝    ╚══════╝╚═╝     ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("                         M O N I T O R"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                        Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("                Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  DEX Spread Monitor"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", StepDone
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon, statusText, style = spinners[idx], "Working...", StepWorking
		case "failed":
			icon, statusText, style = "✗", "Failed", StepFailed
		default:
			icon, statusText, style = "○", "Pending", MutedValue
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedValue.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n")

	for _, e := range m.errors {
		sb.WriteString(StepFailed.Render("  " + e.Message))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Cycle: #%d", m.cycle))
	if m.block > 0 {
		parts = append(parts, fmt.Sprintf("Block: #%d", m.block))
	}
	if m.gasPrice > 0 {
		parts = append(parts, fmt.Sprintf("Gas: %.1f gwei", m.gasPrice))
	}
	if m.nativeUSD != "" {
		parts = append(parts, "Native: $"+m.nativeUSD)
	}

	rateStyle := StatusHealthy
	if m.successRate < 0.5 {
		rateStyle = StatusDown
	}
	parts = append(parts, rateStyle.Render(fmt.Sprintf("Quotes OK: %.0f%%", m.successRate*100)))

	if e, ok := m.status.Active(); ok {
		parts = append(parts, StatusHealthy.Render("● "+e.URL))
	} else {
		parts = append(parts, StatusDown.Render("○ no endpoint"))
	}

	if !m.lastUpdate.IsZero() {
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", time.Since(m.lastUpdate).Round(time.Second))))
	}

	return strings.Join(parts, "  │  ")
}

// Program owns a running Bubble Tea program. Senders hold a reference to it
// instead of reaching for package state.
type Program struct {
	p *tea.Program
}

// NewProgram creates the dashboard program.
func NewProgram(onStart func()) *Program {
	return &Program{p: tea.NewProgram(New(onStart), tea.WithAltScreen())}
}

// Run blocks until the user quits.
func (p *Program) Run() error {
	_, err := p.p.Run()
	return err
}

// Send delivers a message to the running program.
func (p *Program) Send(msg tea.Msg) {
	p.p.Send(msg)
}

// Quit asks the program to exit.
func (p *Program) Quit() {
	p.p.Quit()
}
