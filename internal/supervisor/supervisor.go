package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randomizedcoder/go-watchdog/internal/process"
)

// Callbacks contains optional callback functions for supervisor events.
// They run on the supervision goroutine and must not block.
type Callbacks struct {
	// OnStateChange is called when the supervisor state changes.
	OnStateChange func(oldState, newState State)

	// OnStart is called after the child process has been spawned.
	OnStart func(attempt int, pid int)

	// OnExit is called once the child's exit status has been classified.
	OnExit func(outcome Outcome, uptime time.Duration)

	// OnRestart is called when the restart delay has elapsed and the next
	// spawn is about to happen.
	OnRestart func(restart int, delay time.Duration)
}

// StopReason tells why Run returned.
type StopReason int

const (
	// StopChildExited means the child exited with status 0.
	StopChildExited StopReason = iota

	// StopChildSignaled means the child was terminated by a signal.
	StopChildSignaled

	// StopCancelled means the context was cancelled.
	StopCancelled

	// StopFailed means the child could not be spawned.
	StopFailed
)

func (r StopReason) String() string {
	switch r {
	case StopChildExited:
		return "child_exited"
	case StopChildSignaled:
		return "child_signaled"
	case StopCancelled:
		return "cancelled"
	case StopFailed:
		return "spawn_failed"
	default:
		return "unknown"
	}
}

// Result summarizes a completed supervision run.
type Result struct {
	Reason   StopReason
	Spawns   int
	Restarts int

	// Last is the outcome of the most recent child, valid when Spawns > 0.
	Last Outcome
}

// Config holds configuration for creating a new Supervisor.
type Config struct {
	Runner    process.Runner
	Redirects Redirects
	Delay     time.Duration // fixed pause between an abnormal exit and the next spawn
	Logger    *slog.Logger
	Callbacks Callbacks
}

// Supervisor owns the lifecycle of one child process: spawn, wait, classify,
// and restart after a fixed delay while the child keeps failing.
type Supervisor struct {
	runner    process.Runner
	redirects Redirects
	delay     time.Duration
	logger    *slog.Logger
	callbacks Callbacks

	mu        sync.RWMutex
	state     State
	pid       int
	startTime time.Time
	spawns    int
	restarts  int
	last      Outcome
	exited    bool
}

// New creates a new Supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.Delay
	if delay < 0 {
		delay = 0
	}

	return &Supervisor{
		runner:    cfg.Runner,
		redirects: cfg.Redirects,
		delay:     delay,
		logger:    logger,
		callbacks: cfg.Callbacks,
		state:     StateCreated,
	}
}

// Run supervises the child until it exits normally, is killed by a signal,
// or ctx is cancelled. A non-nil error means the child could not be spawned
// (see SpawnError); such errors are never retried.
//
// Cancellation is polled before every spawn, after every abnormal exit and
// during the restart delay. It never interrupts a running child: Run keeps
// waiting until the child exits on its own.
func (s *Supervisor) Run(ctx context.Context) (Result, error) {
	s.logger.Info("watchdog_starting",
		"executable", s.runner.Name(),
		"delay", s.delay.String(),
	)

	for {
		if cancelled(ctx) {
			return s.stop(StopCancelled), nil
		}

		outcome, err := s.runOnce()
		if err != nil {
			s.setState(StateFailed)
			s.logger.Error("spawn_failed", "error", err)
			return s.result(StopFailed), err
		}

		switch outcome.Kind {
		case OutcomeNormal:
			return s.stop(StopChildExited), nil
		case OutcomeSignaled:
			return s.stop(StopChildSignaled), nil
		}

		if cancelled(ctx) {
			return s.stop(StopCancelled), nil
		}

		s.setState(StateBackoff)
		s.logger.Debug("restart_scheduled", "delay", s.delay.String())

		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return s.stop(StopCancelled), nil
		case <-timer.C:
		}

		s.mu.Lock()
		s.restarts++
		restarts := s.restarts
		s.mu.Unlock()

		s.logger.Info("child_restarting", "restart", restarts, "delay", s.delay.String())
		if s.callbacks.OnRestart != nil {
			s.callbacks.OnRestart(restarts, s.delay)
		}
	}
}

// runOnce spawns the child once and blocks until it exits.
func (s *Supervisor) runOnce() (Outcome, error) {
	s.setState(StateStarting)

	s.mu.RLock()
	attempt := s.spawns + 1
	s.mu.RUnlock()

	streams, err := OpenStreams(s.redirects)
	if err != nil {
		return Outcome{}, err
	}
	defer streams.Close()

	cmd, err := s.runner.BuildCommand(attempt)
	if err != nil {
		return Outcome{}, &SpawnError{Op: "build", Path: s.runner.Name(), Err: err}
	}
	cmd.Stdin = streams.Stdin
	cmd.Stdout = streams.Stdout
	cmd.Stderr = streams.Stderr

	if err := cmd.Start(); err != nil {
		return Outcome{}, &SpawnError{Op: "start", Path: cmd.Path, Err: err}
	}
	// The child holds its own descriptors now.
	streams.Close()

	pid := cmd.Process.Pid
	startTime := time.Now()

	s.mu.Lock()
	s.spawns++
	s.pid = pid
	s.startTime = startTime
	s.mu.Unlock()
	s.setState(StateRunning)

	s.logger.Info("child_started",
		"pid", pid,
		"attempt", attempt,
		"path", cmd.Path,
		"args", cmd.Args[1:],
	)
	if s.callbacks.OnStart != nil {
		s.callbacks.OnStart(attempt, pid)
	}

	waitErr := cmd.Wait()
	uptime := time.Since(startTime)

	outcome, err := Classify(waitErr)
	if err != nil {
		return Outcome{}, &SpawnError{Op: "wait", Path: cmd.Path, Err: err}
	}

	s.mu.Lock()
	s.pid = 0
	s.last = outcome
	s.exited = true
	s.mu.Unlock()

	switch outcome.Kind {
	case OutcomeNormal:
		s.logger.Info("child_exited_normally", "pid", pid, "uptime", uptime.String())
	case OutcomeSignaled:
		s.logger.Info("child_terminated_by_signal",
			"pid", pid,
			"signal", int(outcome.Signal),
			"signal_name", SignalName(outcome.Signal),
			"uptime", uptime.String(),
		)
	default:
		s.logger.Warn("child_exited_abnormally",
			"pid", pid,
			"exit_code", outcome.Code,
			"uptime", uptime.String(),
		)
	}

	if s.callbacks.OnExit != nil {
		s.callbacks.OnExit(outcome, uptime)
	}
	return outcome, nil
}

func (s *Supervisor) stop(reason StopReason) Result {
	s.setState(StateStopped)
	if reason == StopCancelled {
		s.logger.Info("cancellation_received")
	}
	res := s.result(reason)
	s.logger.Info("watchdog_stopped",
		"reason", reason.String(),
		"spawns", res.Spawns,
		"restarts", res.Restarts,
	)
	return res
}

func (s *Supervisor) result(reason StopReason) Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Result{
		Reason:   reason,
		Spawns:   s.spawns,
		Restarts: s.restarts,
		Last:     s.last,
	}
}

// cancelled polls ctx without blocking. A context whose Done channel is nil
// can never be cancelled.
func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// State returns the current state of the supervisor.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// setState updates the state and calls the callback if registered.
func (s *Supervisor) setState(newState State) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()

	if s.callbacks.OnStateChange != nil && oldState != newState {
		s.callbacks.OnStateChange(oldState, newState)
	}
}

// Name returns the name of the supervised executable.
func (s *Supervisor) Name() string {
	return s.runner.Name()
}

// Delay returns the configured restart delay.
func (s *Supervisor) Delay() time.Duration {
	return s.delay
}

// PID returns the pid of the running child, or 0 if none is running.
func (s *Supervisor) PID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pid
}

// Spawns returns the number of children started so far.
func (s *Supervisor) Spawns() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spawns
}

// Restarts returns the number of restarts that have occurred.
func (s *Supervisor) Restarts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restarts
}

// LastOutcome returns the outcome of the most recent child. ok is false
// until a child has exited.
func (s *Supervisor) LastOutcome() (outcome Outcome, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.exited
}

// Uptime returns the current uptime if running, or 0 if not.
func (s *Supervisor) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateRunning {
		return 0
	}
	return time.Since(s.startTime)
}
