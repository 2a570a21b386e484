// Package supervisor runs a single child process and restarts it when it
// exits abnormally.
package supervisor

// State represents the current state of the supervised child.
type State int

const (
	// StateCreated is the initial state before the first spawn.
	StateCreated State = iota

	// StateStarting indicates redirections are being opened and the child spawned.
	StateStarting

	// StateRunning indicates the child process is running and being waited on.
	StateRunning

	// StateBackoff indicates the supervisor is sleeping before a restart.
	StateBackoff

	// StateStopped indicates supervision ended cleanly.
	StateStopped

	// StateFailed indicates supervision ended on a fatal spawn error.
	StateFailed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsActive returns true if the child is running or about to be (re)started.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning || s == StateBackoff
}

// IsTerminal returns true if supervision has ended.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}
