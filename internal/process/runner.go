// Package process builds the launch request for the supervised executable.
package process

import (
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner creates executable commands for the supervisor.
// This interface allows the supervisor to be process-agnostic.
type Runner interface {
	// BuildCommand returns a ready-to-start command for the given attempt
	// (1 for the first spawn). The command should NOT be started yet, and
	// must not be bound to a context: cancellation never kills the child.
	BuildCommand(attempt int) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}

// ErrNoExecutable is returned when no executable path was configured.
var ErrNoExecutable = errors.New("executable path is empty")

// Command runs a fixed executable with a fixed argument list.
type Command struct {
	Path string
	Args []string
}

// NewCommand returns a Runner for path with args. The args slice is copied.
func NewCommand(path string, args []string) *Command {
	return &Command{
		Path: path,
		Args: append([]string(nil), args...),
	}
}

// BuildCommand implements Runner. The child inherits the supervisor's
// environment and working directory.
func (c *Command) BuildCommand(attempt int) (*exec.Cmd, error) {
	if c.Path == "" {
		return nil, ErrNoExecutable
	}
	cmd := exec.Command(c.Path, c.Args...)
	configureCmdSysProcAttr(cmd)
	return cmd, nil
}

// Name implements Runner.
func (c *Command) Name() string {
	return filepath.Base(c.Path)
}

// CommandString returns the command that would be executed, quoted so it
// can be pasted into a POSIX shell.
func (c *Command) CommandString() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, shellQuote(c.Path))
	for _, arg := range c.Args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

// shellQuote wraps s in single quotes when it contains anything a shell
// would interpret.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
