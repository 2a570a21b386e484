package tui

import (
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-watchdog/internal/stats"
	"github.com/randomizedcoder/go-watchdog/internal/supervisor"
)

// maxExitCodes is how many exit codes the history panel lists.
const maxExitCodes = 5

// =============================================================================
// Main View Rendering
// =============================================================================

func (m Model) renderDashboard() string {
	sections := []string{
		m.renderHeader(),
		m.renderChild(),
		m.renderHistory(),
	}
	if m.showLogs && m.logs != nil {
		sections = append(sections, m.renderLogs())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" go-watchdog │ %s │ Restarts: %d │ Elapsed: %s ",
		GetStateLabel(m.status.State),
		m.status.History.Restarts,
		stats.FormatDuration(m.Elapsed()),
	)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Child Panel
// =============================================================================

func (m Model) renderChild() string {
	s := m.status

	pid := "-"
	if s.PID > 0 {
		pid = fmt.Sprintf("%d", s.PID)
	}
	uptime := "-"
	if s.State == supervisor.StateRunning {
		uptime = stats.FormatUptime(s.Uptime)
	}

	lines := []string{
		sectionHeaderStyle.Render("Child"),
		RenderKeyValue("Command", m.truncate(m.command, m.width-26)),
		RenderKeyValue("State", GetStateLabel(s.State)),
		RenderKeyValue("PID", pid),
		RenderKeyValue("Uptime", uptime),
		RenderKeyValue("Restart delay", m.delay.String()),
	}

	if s.History.HasExited {
		last := GetOutcomeStyle(s.History.Last).Render(s.History.Last.String())
		lines = append(lines, RenderKeyValue("Last exit", last+dimStyle.Render(
			fmt.Sprintf(" (%s ago)", stats.FormatUptime(s.History.SinceLastExit)))))
	}

	if s.State == supervisor.StateBackoff {
		barWidth := m.width - 30
		if barWidth < 20 {
			barWidth = 20
		}
		lines = append(lines,
			statusWarning.Render("Restarting..."),
			RenderProgressBar(m.RestartProgress(), barWidth),
		)
	}

	switch {
	case s.State.IsTerminal():
		lines = append(lines, mutedStyle.Render("Supervision ended"))
	case m.stopRequested:
		lines = append(lines, statusInfo.Render("Stop requested: waiting for the child to exit"))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// History Panel
// =============================================================================

func (m Model) renderHistory() string {
	h := m.status.History

	lines := []string{
		sectionHeaderStyle.Render("History"),
		RenderKeyValue("Starts", stats.FormatNumber(int64(h.Spawns))),
		lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Restarts:"),
			GetRestartStyle(h.Restarts).Render(stats.FormatNumber(int64(h.Restarts))),
		),
		RenderKeyValue("Exits", fmt.Sprintf("%d normal, %d abnormal, %d signaled",
			h.NormalExits, h.AbnormalExits, h.SignaledExits)),
	}

	if r := m.status.RestartRate; r.Total > 0 {
		lines = append(lines, RenderKeyValue("Restart rate", fmt.Sprintf("%.1f / %.1f / %.1f per min (1m/5m/15m)",
			r.PerMinute1m, r.PerMinute5m, r.PerMinute15m)))
	}

	if h.UptimeCount > 0 {
		lines = append(lines, RenderKeyValue("Uptime P50/95/99", fmt.Sprintf("%s / %s / %s",
			stats.FormatUptime(h.UptimeP50),
			stats.FormatUptime(h.UptimeP95),
			stats.FormatUptime(h.UptimeP99),
		)))
	}

	if codes := topCodes(h); len(codes) > 0 {
		lines = append(lines, RenderKeyValue("Top exit codes", strings.Join(codes, ", ")))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// topCodes lists the most frequent exit codes and signals as "code×count".
func topCodes(h stats.Snapshot) []string {
	var out []string
	for _, cc := range h.ExitCodes {
		if len(out) == maxExitCodes {
			return out
		}
		out = append(out, fmt.Sprintf("%d×%d", cc.Code, cc.Count))
	}
	for _, cc := range h.Signals {
		if len(out) == maxExitCodes {
			return out
		}
		out = append(out, fmt.Sprintf("%s×%d", supervisor.SignalName(syscall.Signal(cc.Code)), cc.Count))
	}
	return out
}

// =============================================================================
// Log Panel
// =============================================================================

func (m Model) renderLogs() string {
	// header + child + history + footer take roughly 22 rows
	n := m.height - 22
	if n < 3 {
		n = 3
	}

	lines := []string{sectionHeaderStyle.Render("Recent Events")}
	recent := m.logs.RecentLines(n)
	if len(recent) == 0 {
		lines = append(lines, dimStyle.Render("(no events yet)"))
	}
	for _, l := range recent {
		lines = append(lines, mutedStyle.Render(m.truncate(l, m.width-6)))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	quit := "q: stop"
	if m.stopRequested {
		quit = "q: close dashboard"
	}
	shortcuts := []string{quit, "l: toggle events", "r: refresh"}

	left := dimStyle.Render(strings.Join(shortcuts, " │ "))
	right := dimStyle.Render("Updated " + m.lastUpdate.Format(time.TimeOnly))
	if m.metricsAddr != "" {
		right = dimStyle.Render("Metrics: http://" + m.metricsAddr + "/metrics")
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			right,
		),
	)
}

// truncate shortens s to max runes, marking the cut with "...".
func (m Model) truncate(s string, max int) string {
	if max < 10 {
		max = 10
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
