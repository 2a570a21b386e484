//go:build unix

package signals

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for concurrent use by a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNotifyContext_CancelsOnSignal(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, stop := NotifyContext(context.Background(), logger, syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after signal")
	}

	// The log line is written before cancel.
	if !strings.Contains(buf.String(), "received_signal") {
		t.Errorf("log output missing received_signal: %q", buf.String())
	}
}

func TestNotifyContext_SecondSignalConsumed(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, stop := NotifyContext(context.Background(), logger, syscall.SIGUSR2)
	defer stop()

	syscall.Kill(syscall.Getpid(), syscall.SIGUSR2)
	<-ctx.Done()

	// SIGUSR2's default action would terminate the test binary.
	syscall.Kill(syscall.Getpid(), syscall.SIGUSR2)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "already_stopping") {
		if time.Now().After(deadline) {
			t.Fatalf("second signal not logged: %q", buf.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNotifyContext_StopCancels(t *testing.T) {
	ctx, stop := NotifyContext(context.Background(), nil, syscall.SIGUSR1)

	stop()
	stop() // idempotent

	select {
	case <-ctx.Done():
	default:
		t.Error("stop() should cancel the context")
	}
}

func TestNotifyContext_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := NotifyContext(parent, nil, syscall.SIGUSR1)
	defer stop()

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("child context not cancelled with parent")
	}
}

func TestDefaultSignals(t *testing.T) {
	want := map[syscall.Signal]bool{syscall.SIGINT: true, syscall.SIGTERM: true, syscall.SIGHUP: true}
	if len(DefaultSignals) != len(want) {
		t.Fatalf("DefaultSignals = %v", DefaultSignals)
	}
	for _, sig := range DefaultSignals {
		if !want[sig.(syscall.Signal)] {
			t.Errorf("unexpected default signal %v", sig)
		}
	}
}
