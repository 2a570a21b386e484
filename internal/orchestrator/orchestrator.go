// Package orchestrator wires the supervisor to its observers: preflight
// checks, metrics, run history, the dashboard and the exit summary.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-watchdog/internal/config"
	"github.com/randomizedcoder/go-watchdog/internal/logging"
	"github.com/randomizedcoder/go-watchdog/internal/metrics"
	"github.com/randomizedcoder/go-watchdog/internal/preflight"
	"github.com/randomizedcoder/go-watchdog/internal/process"
	"github.com/randomizedcoder/go-watchdog/internal/stats"
	"github.com/randomizedcoder/go-watchdog/internal/supervisor"
	"github.com/randomizedcoder/go-watchdog/internal/timeseries"
	"github.com/randomizedcoder/go-watchdog/internal/tui"
)

// shutdownTimeout bounds the metrics server shutdown after supervision ends.
const shutdownTimeout = 5 * time.Second

// Options holds the optional collaborators of an Orchestrator.
type Options struct {
	// Version is reported in the watchdog_info metric.
	Version string

	// Output receives the preflight report and the exit summary.
	// Defaults to os.Stderr.
	Output io.Writer

	// Logs feeds the dashboard's event panel. Only used with the TUI.
	Logs *logging.Ring
}

// Orchestrator coordinates all components for one supervised child.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger
	out    io.Writer
	logs   *logging.Ring

	runner        *process.Command
	registry      *prometheus.Registry
	metrics       *metrics.Collector
	metricsServer *metrics.Server
	history       *stats.RunHistory
	restartRate   *timeseries.RateTracker
	supervisor    *supervisor.Supervisor
	status        *statusTracker
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	runner := process.NewCommand(cfg.Executable, cfg.Args)

	registry := metrics.NewRegistry()
	collector := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version:    opts.Version,
		Executable: cfg.Executable,
		Delay:      cfg.Delay,
	}, registry)

	restartRate := timeseries.NewRateTracker()
	registry.MustRegister(metrics.NewRestartRateCollector(restartRate))

	history := stats.NewRunHistory()
	status := newStatusTracker()

	orch := &Orchestrator{
		config:      cfg,
		logger:      logger,
		out:         out,
		logs:        opts.Logs,
		runner:      runner,
		registry:    registry,
		metrics:     collector,
		history:     history,
		restartRate: restartRate,
		status:      status,
	}

	orch.supervisor = supervisor.New(supervisor.Config{
		Runner:    runner,
		Redirects: cfg.Redirects(),
		Delay:     cfg.Delay,
		Logger:    logger,
		Callbacks: supervisor.MergeCallbacks(
			status.callbacks(),
			collector.Callbacks(),
			history.Callbacks(),
			supervisor.Callbacks{
				OnRestart: func(int, time.Duration) { restartRate.Add(1) },
			},
			orch.debugCallbacks(),
		),
	})

	if cfg.MetricsAddr != "" {
		orch.metricsServer = metrics.NewServer(cfg.MetricsAddr, registry, orch.ready, logger)
	}

	return orch
}

// Run supervises the child until supervision ends. It returns the
// supervisor's result; a non-nil error means a preflight check, the metrics
// server or the spawn itself failed.
func (o *Orchestrator) Run(ctx context.Context) (supervisor.Result, error) {
	if !o.config.SkipPreflight {
		if err := o.preflight(); err != nil {
			return supervisor.Result{Reason: supervisor.StopFailed}, err
		}
	}

	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return supervisor.Result{Reason: supervisor.StopFailed},
				fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer o.shutdownMetrics()
	}

	// The dashboard's stop key cancels the same way a signal does.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	tuiDone := make(chan struct{})
	if o.config.TUIEnabled {
		program = o.startTUI(cancel, tuiDone)
	} else {
		close(tuiDone)
	}

	result, err := o.supervisor.Run(ctx)

	if program != nil {
		tui.SendQuit(program)
	}
	<-tuiDone

	if o.config.MetricsTextfile != "" {
		if werr := metrics.WriteTextfile(o.config.MetricsTextfile, o.registry); werr != nil {
			o.logger.Warn("metrics_textfile_failed", "path", o.config.MetricsTextfile, "error", werr)
		} else {
			o.logger.Debug("metrics_textfile_written", "path", o.config.MetricsTextfile)
		}
	}

	if o.config.Summary {
		o.printExitSummary(result)
	}

	return result, err
}

// preflight runs the startup checks. The report is printed when a check
// fails or in verbose mode.
func (o *Orchestrator) preflight() error {
	result := preflight.RunAll(preflight.Options{
		Executable:  o.config.Executable,
		Stdin:       o.config.Stdin,
		Stdout:      o.config.Stdout,
		Stderr:      o.config.Stderr,
		MetricsAddr: o.config.MetricsAddr,
	})
	if !result.Passed || o.config.Verbose {
		preflight.PrintResults(o.out, result)
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("%w (use --skip-preflight to override)", err)
	}
	o.logger.Debug("preflight_passed", "checks", len(result.Checks))
	return nil
}

// startTUI runs the dashboard on its own goroutine and closes done when it
// exits.
func (o *Orchestrator) startTUI(cancel context.CancelFunc, done chan<- struct{}) *tea.Program {
	cfg := tui.Config{
		Command:     o.runner.CommandString(),
		Delay:       o.config.Delay,
		MetricsAddr: o.config.MetricsAddr,
		Source:      o,
		OnStopRequested: func() {
			o.logger.Info("stop_requested", "source", "dashboard", "action", "stop_after_child_exits")
			cancel()
		},
	}
	if o.logs != nil { // a nil *Ring must not become a non-nil LogSource
		cfg.Logs = o.logs
	}

	program := tea.NewProgram(tui.New(cfg), tea.WithAltScreen())
	go func() {
		defer close(done)
		if _, err := program.Run(); err != nil {
			o.logger.Warn("tui_error", "error", err)
		}
	}()
	return program
}

func (o *Orchestrator) shutdownMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := o.metricsServer.Shutdown(ctx); err != nil {
		o.logger.Warn("metrics_server_shutdown_error", "error", err)
	}
}

// ready reports whether supervision is still in progress.
func (o *Orchestrator) ready() bool {
	return o.supervisor.State().IsActive()
}

// debugCallbacks logs the callback stream at debug level.
func (o *Orchestrator) debugCallbacks() supervisor.Callbacks {
	return supervisor.Callbacks{
		OnStateChange: func(oldState, newState supervisor.State) {
			o.logger.Debug("state_changed", "from", oldState.String(), "to", newState.String())
		},
		OnRestart: func(restart int, delay time.Duration) {
			o.logger.Debug("restart_delay_elapsed", "restart", restart, "delay", delay.String())
		},
	}
}

// printExitSummary prints a summary of the run.
func (o *Orchestrator) printExitSummary(result supervisor.Result) {
	fmt.Fprint(o.out, stats.FormatExitSummary(o.history.Snapshot(), stats.SummaryConfig{
		Command:     o.runner.CommandString(),
		Delay:       o.config.Delay,
		StopReason:  result.Reason.String(),
		MetricsAddr: o.config.MetricsAddr,
	}))
}

// Status implements tui.StatusSource.
func (o *Orchestrator) Status() tui.Status {
	return tui.Status{
		State:       o.supervisor.State(),
		StateSince:  o.status.since(),
		PID:         o.supervisor.PID(),
		Uptime:      o.supervisor.Uptime(),
		History:     o.history.Snapshot(),
		RestartRate: o.restartRate.GetStats(),
	}
}

// Supervisor returns the supervisor for external access.
func (o *Orchestrator) Supervisor() *supervisor.Supervisor {
	return o.supervisor
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Registry returns the Prometheus registry holding the watchdog metrics.
func (o *Orchestrator) Registry() *prometheus.Registry {
	return o.registry
}

// RestartRate returns the rolling restart rate tracker.
func (o *Orchestrator) RestartRate() *timeseries.RateTracker {
	return o.restartRate
}

// History returns the run history for external access.
func (o *Orchestrator) History() *stats.RunHistory {
	return o.history
}

// MetricsAddr returns the address the metrics server is bound to, or "" when
// it is disabled or not started.
func (o *Orchestrator) MetricsAddr() string {
	if o.metricsServer == nil {
		return ""
	}
	return o.metricsServer.Addr()
}
