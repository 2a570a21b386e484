package supervisor

import "fmt"

// SpawnError reports a failure to launch the child: an unopenable
// redirection target, a command that could not be built or started, or a
// failed wait. It is never retried.
type SpawnError struct {
	Op   string // "open stdin", "build", "start", "wait", ...
	Path string // file or executable involved, if any
	Err  error
}

func (e *SpawnError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
