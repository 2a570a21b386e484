package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-watchdog/internal/stats"
	"github.com/randomizedcoder/go-watchdog/internal/supervisor"
	"github.com/randomizedcoder/go-watchdog/internal/timeseries"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// QuitMsg signals the TUI should exit. Sent when supervision has ended.
type QuitMsg struct{}

// =============================================================================
// Status
// =============================================================================

// Status is a point-in-time view of the supervised child.
type Status struct {
	State       supervisor.State
	StateSince  time.Time // when State was entered
	PID         int
	Uptime      time.Duration
	History     stats.Snapshot
	RestartRate timeseries.RateStats
}

// StatusSource provides the current supervisor status.
type StatusSource interface {
	Status() Status
}

// LogSource provides recent log lines (see logging.Ring).
type LogSource interface {
	RecentLines(n int) []string
}

// =============================================================================
// Model
// =============================================================================

// Config holds TUI configuration.
type Config struct {
	Command     string
	Delay       time.Duration
	MetricsAddr string
	Source      StatusSource
	Logs        LogSource

	// OnStopRequested is called once when the user asks to stop. It should
	// cancel supervision; the dashboard stays up until the child exits.
	OnStopRequested func()
}

// Model represents the TUI state.
type Model struct {
	// Configuration
	command     string
	delay       time.Duration
	metricsAddr string

	// Sources
	source          StatusSource
	logs            LogSource
	onStopRequested func()

	// Current state
	status        Status
	startTime     time.Time
	lastUpdate    time.Time
	showLogs      bool
	stopRequested bool

	// Display options
	width  int
	height int

	// Quit flag
	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	now := time.Now()
	m := Model{
		command:         cfg.Command,
		delay:           cfg.Delay,
		metricsAddr:     cfg.MetricsAddr,
		source:          cfg.Source,
		logs:            cfg.Logs,
		onStopRequested: cfg.OnStopRequested,
		startTime:       now,
		lastUpdate:      now,
		showLogs:        cfg.Logs != nil,
		width:           80,
		height:          24,
	}
	m.refresh()
	return m
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// First press stops supervision, second leaves the dashboard.
			if m.stopRequested {
				m.quitting = true
				return m, tea.Quit
			}
			m.stopRequested = true
			if m.onStopRequested != nil {
				m.onStopRequested()
			}
			return m, nil
		case "l":
			m.showLogs = !m.showLogs
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// refresh pulls the latest status from the source.
func (m *Model) refresh() {
	if m.source != nil {
		m.status = m.source.Status()
	}
	m.lastUpdate = time.Now()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// State returns the last observed supervisor state.
func (m Model) State() supervisor.State {
	return m.status.State
}

// StopRequested reports whether the user asked to stop supervision.
func (m Model) StopRequested() bool {
	return m.stopRequested
}

// RestartProgress returns how far the restart delay has elapsed (0.0 to 1.0).
// It is 0 unless the supervisor is waiting to restart.
func (m Model) RestartProgress() float64 {
	if m.status.State != supervisor.StateBackoff || m.status.StateSince.IsZero() {
		return 0
	}
	if m.delay <= 0 {
		return 1
	}
	p := float64(m.lastUpdate.Sub(m.status.StateSince)) / float64(m.delay)
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}
