package supervisor

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
)

// waitErrFor runs script with /bin/sh and returns the error from Wait.
func waitErrFor(t *testing.T, script string) error {
	t.Helper()
	skipOnWindows(t)

	cmd := exec.Command("/bin/sh", "-c", script)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return cmd.Wait()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		wantKind   OutcomeKind
		wantCode   int
		wantSignal syscall.Signal
	}{
		{"exit 0", "exit 0", OutcomeNormal, 0, 0},
		{"exit 1", "exit 1", OutcomeExitCode, 1, 0},
		{"exit 42", "exit 42", OutcomeExitCode, 42, 0},
		{"exit 255", "exit 255", OutcomeExitCode, 255, 0},
		{"SIGTERM", "kill -TERM $$", OutcomeSignaled, 0, syscall.SIGTERM},
		{"SIGKILL", "kill -KILL $$", OutcomeSignaled, 0, syscall.SIGKILL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(waitErrFor(t, tt.script))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", got.Code, tt.wantCode)
			}
			if got.Signal != tt.wantSignal {
				t.Errorf("Signal = %v, want %v", got.Signal, tt.wantSignal)
			}
		})
	}
}

func TestClassify_NonExitError(t *testing.T) {
	waitErr := errors.New("exec: Wait was already called")

	_, err := Classify(waitErr)
	if !errors.Is(err, waitErr) {
		t.Errorf("Classify() error = %v, want %v", err, waitErr)
	}
}

func TestOutcome_Terminal(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    bool
	}{
		{Outcome{Kind: OutcomeNormal}, true},
		{Outcome{Kind: OutcomeSignaled, Signal: syscall.SIGINT}, true},
		{Outcome{Kind: OutcomeExitCode, Code: 1}, false},
	}

	for _, tt := range tests {
		if got := tt.outcome.Terminal(); got != tt.want {
			t.Errorf("%v.Terminal() = %v, want %v", tt.outcome, got, tt.want)
		}
	}
}

func TestOutcome_ShellCode(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    int
	}{
		{Outcome{Kind: OutcomeNormal}, 0},
		{Outcome{Kind: OutcomeExitCode, Code: 3}, 3},
		{Outcome{Kind: OutcomeSignaled, Signal: syscall.SIGKILL}, 137},
		{Outcome{Kind: OutcomeSignaled, Signal: syscall.SIGTERM}, 143},
	}

	for _, tt := range tests {
		if got := tt.outcome.ShellCode(); got != tt.want {
			t.Errorf("%v.ShellCode() = %d, want %d", tt.outcome, got, tt.want)
		}
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{Outcome{Kind: OutcomeNormal}, "exited normally"},
		{Outcome{Kind: OutcomeExitCode, Code: 7}, "exited with code 7"},
		{Outcome{Kind: OutcomeSignaled, Signal: syscall.SIGKILL}, "terminated by signal 9 (SIGKILL)"},
		{Outcome{Kind: OutcomeKind(42)}, "unknown outcome"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestOutcomeKind_String(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want string
	}{
		{OutcomeNormal, "normal"},
		{OutcomeExitCode, "exit_code"},
		{OutcomeSignaled, "signaled"},
		{OutcomeKind(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("OutcomeKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}
