// Package cli implements the go-watchdog command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/randomizedcoder/go-watchdog/internal/config"
	"github.com/randomizedcoder/go-watchdog/internal/logging"
	"github.com/randomizedcoder/go-watchdog/internal/orchestrator"
	"github.com/randomizedcoder/go-watchdog/internal/process"
	"github.com/randomizedcoder/go-watchdog/internal/signals"
)

// reportedError wraps an error that has already been logged.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// isTerminal reports whether stdout is a terminal. Replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// NewRootCmd builds the go-watchdog command.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "go-watchdog [flags] <executable> [args...]",
		Short: "Keep a process running, restarting it after abnormal exits",
		Long: `go-watchdog runs an executable and restarts it after a fixed delay
whenever it exits with a non-zero status. Supervision ends when the child
exits with status 0, is killed by a signal, or the watchdog receives
SIGINT, SIGTERM or SIGHUP (the running child is always allowed to finish).

Flags after the executable are passed to the child. Use -- to separate
them explicitly.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.Flags().SetInterspersed(false)
	flags := config.BindFlags(root.Flags())

	root.SetUsageFunc(func(c *cobra.Command) error {
		w := c.OutOrStderr()
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Use)
		config.PrintUsage(w, c.Flags())
		fmt.Fprintln(w, "\nOther:")
		fmt.Fprintln(w, "  -h, --help\n    \tShow this help")
		fmt.Fprintln(w, "      --version\n    \tPrint the version")
		return nil
	})

	root.RunE = func(cmd *cobra.Command, args []string) error {
		return run(cmd, version, flags, args)
	}

	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	return execute(NewRootCmd(version), os.Args[1:])
}

func execute(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(root.ErrOrStderr(), "go-watchdog: %v\n", err)
		}
		return 1
	}
	return 0
}

func run(cmd *cobra.Command, version string, flags *config.Flags, args []string) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	cfg, err := config.Load(flags, args, os.LookupEnv)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	runner := process.NewCommand(cfg.Executable, cfg.Args)
	if cfg.PrintCmd {
		fmt.Fprintln(stdout, "# Command that would be supervised:")
		fmt.Fprintln(stdout, runner.CommandString())
		return nil
	}

	if cfg.TUIEnabled && !isTerminal() {
		return errors.New("--tui requires stdout to be a terminal")
	}

	logger, ring := newLogger(cfg, stderr)
	logging.SetDefault(logger)

	logger.Info("starting",
		"version", version,
		"executable", cfg.Executable,
		"args", cfg.Args,
		"delay", cfg.Delay.String(),
		"config_file", cfg.ConfigFile,
		"metrics_addr", cfg.MetricsAddr,
	)

	ctx, stop := signals.NotifyContext(cmd.Context(), logger)
	defer stop()

	orch := orchestrator.New(cfg, logger, orchestrator.Options{
		Version: version,
		Output:  stderr,
		Logs:    ring,
	})
	if _, err := orch.Run(ctx); err != nil {
		logger.Error("watchdog_failed", "error", err)
		if ring != nil {
			// The dashboard is gone and its log ring with it.
			fmt.Fprintf(stderr, "go-watchdog: %v\n", err)
		}
		return &reportedError{err: err}
	}
	return nil
}

// newLogger builds the process logger. With the dashboard enabled, records
// go to an in-memory ring shown in its events panel instead of the terminal.
func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, *logging.Ring) {
	if cfg.TUIEnabled {
		ring := logging.NewRing(logging.DefaultRingSize)
		return logging.NewRingLogger(ring, cfg.LogLevel, cfg.Verbose), ring
	}
	return logging.NewLoggerWithWriter(stderr, cfg.LogFormat, cfg.LogLevel, cfg.Verbose), nil
}
