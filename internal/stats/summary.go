package stats

import (
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-watchdog/internal/supervisor"
)

const (
	ruleHeavy = "═══════════════════════════════════════════════════════════════════════════════\n"
	ruleLight = "───────────────────────────────────────────────────────────────────────────────\n"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Command is the supervised command line as shown to the user
	Command string

	// Delay is the configured restart delay
	Delay time.Duration

	// StopReason says why supervision ended
	StopReason string

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string
}

// FormatExitSummary formats the run history for display at program exit.
func FormatExitSummary(s Snapshot, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(ruleHeavy)
	b.WriteString("                           go-watchdog Exit Summary\n")
	b.WriteString(ruleHeavy + "\n")

	// Run info
	if cfg.Command != "" {
		fmt.Fprintf(&b, "Command:                %s\n", cfg.Command)
	}
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(s.Elapsed))
	fmt.Fprintf(&b, "Restart Delay:          %s\n", cfg.Delay)
	if cfg.StopReason != "" {
		fmt.Fprintf(&b, "Stop Reason:            %s\n", cfg.StopReason)
	}
	if s.HasExited {
		fmt.Fprintf(&b, "Last Child:             %s\n", s.Last)
	}
	b.WriteString("\n")

	// Lifecycle
	section(&b, "Lifecycle")
	fmt.Fprintf(&b, "  Total Starts:         %d\n", s.Spawns)
	fmt.Fprintf(&b, "  Total Restarts:       %d\n", s.Restarts)
	fmt.Fprintf(&b, "  Normal Exits:         %d\n", s.NormalExits)
	fmt.Fprintf(&b, "  Abnormal Exits:       %d\n", s.AbnormalExits)
	fmt.Fprintf(&b, "  Signaled Exits:       %d\n", s.SignaledExits)
	b.WriteString("\n")

	// Uptime distribution
	if s.UptimeCount > 0 {
		section(&b, "Uptime Distribution")
		fmt.Fprintf(&b, "  Min:                  %s\n", FormatUptime(s.UptimeMin))
		fmt.Fprintf(&b, "  Mean:                 %s\n", FormatUptime(s.UptimeMean))
		fmt.Fprintf(&b, "  P50 (median):         %s\n", FormatUptime(s.UptimeP50))
		fmt.Fprintf(&b, "  P95:                  %s\n", FormatUptime(s.UptimeP95))
		fmt.Fprintf(&b, "  P99:                  %s\n", FormatUptime(s.UptimeP99))
		fmt.Fprintf(&b, "  Max:                  %s\n", FormatUptime(s.UptimeMax))
		b.WriteString("\n")
	}

	// Exit codes
	if len(s.ExitCodes) > 0 || len(s.Signals) > 0 {
		section(&b, "Exit Codes")
		for _, cc := range s.ExitCodes {
			fmt.Fprintf(&b, "  %3d %-16s %d\n", cc.Code, exitCodeLabel(cc.Code), cc.Count)
		}
		for _, cc := range s.Signals {
			name := "(" + supervisor.SignalName(syscall.Signal(cc.Code)) + ")"
			fmt.Fprintf(&b, "  %3d %-16s %d\n", 128+cc.Code, name, cc.Count)
		}
		b.WriteString("\n")
	}

	// Metrics endpoint
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString(ruleHeavy)

	return b.String()
}

func section(b *strings.Builder, title string) {
	pad := (len([]rune(ruleLight)) - 1 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(ruleLight)
	b.WriteString(strings.Repeat(" ", pad) + title + "\n")
	b.WriteString(ruleLight + "\n")
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 1:
		return "(error)"
	case 2:
		return "(misuse)"
	case 126:
		return "(not executable)"
	case 127:
		return "(not found)"
	default:
		return ""
	}
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatUptime formats a child uptime compactly: milliseconds below one
// second, seconds with one decimal below a minute, HH:MM:SS above.
func FormatUptime(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1f s", d.Seconds())
	default:
		return FormatDuration(d)
	}
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}
