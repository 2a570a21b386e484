package supervisor

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// OutcomeKind classifies how a child process terminated.
type OutcomeKind int

const (
	// OutcomeNormal means the child exited with status 0.
	OutcomeNormal OutcomeKind = iota

	// OutcomeExitCode means the child exited with a non-zero status.
	OutcomeExitCode

	// OutcomeSignaled means the child was terminated by a signal.
	OutcomeSignaled
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNormal:
		return "normal"
	case OutcomeExitCode:
		return "exit_code"
	case OutcomeSignaled:
		return "signaled"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one child process lifetime.
type Outcome struct {
	Kind   OutcomeKind
	Code   int            // exit status, set for OutcomeExitCode
	Signal syscall.Signal // set for OutcomeSignaled
}

// Terminal reports whether the outcome ends supervision.
func (o Outcome) Terminal() bool {
	return o.Kind == OutcomeNormal || o.Kind == OutcomeSignaled
}

// ShellCode returns the exit status a shell would report: the exit code,
// or 128+signal for a signaled child.
func (o Outcome) ShellCode() int {
	switch o.Kind {
	case OutcomeExitCode:
		return o.Code
	case OutcomeSignaled:
		return 128 + int(o.Signal)
	default:
		return 0
	}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeNormal:
		return "exited normally"
	case OutcomeExitCode:
		return fmt.Sprintf("exited with code %d", o.Code)
	case OutcomeSignaled:
		return fmt.Sprintf("terminated by signal %d (%s)", int(o.Signal), SignalName(o.Signal))
	default:
		return "unknown outcome"
	}
}

// Classify converts the error returned by (*exec.Cmd).Wait into an Outcome.
// Errors that do not describe a process exit are returned unchanged.
func Classify(waitErr error) (Outcome, error) {
	if waitErr == nil {
		return Outcome{Kind: OutcomeNormal}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return Outcome{}, waitErr
	}

	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return Outcome{Kind: OutcomeSignaled, Signal: status.Signal()}, nil
	}

	code := exitErr.ExitCode()
	if code == 0 {
		return Outcome{Kind: OutcomeNormal}, nil
	}
	return Outcome{Kind: OutcomeExitCode, Code: code}, nil
}
