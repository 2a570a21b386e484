package supervisor

import (
	"os"
	"path/filepath"
)

// Redirects holds optional file paths for the child's standard streams.
// An empty path means the stream is inherited from the supervisor.
type Redirects struct {
	Stdin  string
	Stdout string
	Stderr string
}

// Streams are the files attached to one spawned child.
type Streams struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	opened []*os.File
}

// OpenStreams opens the redirection targets for the next spawn. Stdin must
// already exist; stdout and stderr are created or truncated. Files are opened
// fresh on every call so a rotated or removed path is picked up on restart.
//
// If stdout and stderr name the same file, both streams share one handle.
func OpenStreams(r Redirects) (*Streams, error) {
	s := &Streams{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	if r.Stdin != "" {
		f, err := os.Open(r.Stdin)
		if err != nil {
			s.Close()
			return nil, &SpawnError{Op: "open stdin", Path: r.Stdin, Err: err}
		}
		s.Stdin = s.track(f)
	}

	if r.Stdout != "" {
		f, err := os.Create(r.Stdout)
		if err != nil {
			s.Close()
			return nil, &SpawnError{Op: "open stdout", Path: r.Stdout, Err: err}
		}
		s.Stdout = s.track(f)
	}

	if r.Stderr != "" {
		if r.Stdout != "" && samePath(r.Stdout, r.Stderr) {
			s.Stderr = s.Stdout
		} else {
			f, err := os.Create(r.Stderr)
			if err != nil {
				s.Close()
				return nil, &SpawnError{Op: "open stderr", Path: r.Stderr, Err: err}
			}
			s.Stderr = s.track(f)
		}
	}

	return s, nil
}

func (s *Streams) track(f *os.File) *os.File {
	s.opened = append(s.opened, f)
	return f
}

// Close closes the files opened by OpenStreams. Inherited standard streams
// are left open. Safe to call more than once.
func (s *Streams) Close() error {
	var first error
	for _, f := range s.opened {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.opened = nil
	return first
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
