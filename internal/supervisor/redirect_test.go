package supervisor

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenStreams_Inherit(t *testing.T) {
	s, err := OpenStreams(Redirects{})
	if err != nil {
		t.Fatalf("OpenStreams: %v", err)
	}
	defer s.Close()

	if s.Stdin != os.Stdin || s.Stdout != os.Stdout || s.Stderr != os.Stderr {
		t.Error("empty redirects should inherit the supervisor's standard streams")
	}
	if len(s.opened) != 0 {
		t.Errorf("opened %d files, want 0", len(s.opened))
	}
}

func TestOpenStreams_Files(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.log")
	errPath := filepath.Join(dir, "err.log")

	if err := os.WriteFile(in, []byte("input"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Existing content must be truncated.
	if err := os.WriteFile(out, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenStreams(Redirects{Stdin: in, Stdout: out, Stderr: errPath})
	if err != nil {
		t.Fatalf("OpenStreams: %v", err)
	}

	if s.Stdout == s.Stderr {
		t.Error("distinct paths should get distinct handles")
	}
	if len(s.opened) != 3 {
		t.Errorf("opened %d files, want 3", len(s.opened))
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("stdout file not truncated: %q", data)
	}
	if _, err := os.Stat(errPath); err != nil {
		t.Errorf("stderr file not created: %v", err)
	}
}

func TestOpenStreams_SharedStdoutStderr(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "combined.log")

	tests := []struct {
		name   string
		stdout string
		stderr string
	}{
		{"identical", out, out},
		{"equivalent", out, filepath.Join(dir, ".", "combined.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := OpenStreams(Redirects{Stdout: tt.stdout, Stderr: tt.stderr})
			if err != nil {
				t.Fatalf("OpenStreams: %v", err)
			}
			defer s.Close()

			if s.Stdout != s.Stderr {
				t.Error("stdout and stderr should share one handle")
			}
			if len(s.opened) != 1 {
				t.Errorf("opened %d files, want 1", len(s.opened))
			}
		})
	}
}

func TestOpenStreams_Errors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(in, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		r      Redirects
		wantOp string
	}{
		{"missing stdin", Redirects{Stdin: filepath.Join(dir, "missing")}, "open stdin"},
		{"bad stdout", Redirects{Stdin: in, Stdout: filepath.Join(dir, "x", "out")}, "open stdout"},
		{"bad stderr", Redirects{Stdout: filepath.Join(dir, "ok"), Stderr: filepath.Join(dir, "x", "err")}, "open stderr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := OpenStreams(tt.r)
			if s != nil {
				t.Error("OpenStreams returned streams on error")
			}

			var spawnErr *SpawnError
			if !errors.As(err, &spawnErr) {
				t.Fatalf("err = %v, want *SpawnError", err)
			}
			if spawnErr.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", spawnErr.Op, tt.wantOp)
			}
			if !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("err = %v, want fs.ErrNotExist in chain", err)
			}
		})
	}
}

func TestStreams_CloseIdempotent(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.log")

	s, err := OpenStreams(Redirects{Stdout: out})
	if err != nil {
		t.Fatalf("OpenStreams: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSpawnError(t *testing.T) {
	inner := errors.New("boom")

	tests := []struct {
		err  *SpawnError
		want string
	}{
		{&SpawnError{Op: "start", Path: "/bin/x", Err: inner}, "start /bin/x: boom"},
		{&SpawnError{Op: "build", Err: inner}, "build: boom"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
		if !errors.Is(tt.err, inner) {
			t.Error("SpawnError should unwrap to its cause")
		}
	}
}
