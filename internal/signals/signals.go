// Package signals turns operating system signals into context cancellation.
package signals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// DefaultSignals are the signals that request a graceful stop.
var DefaultSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// NotifyContext returns a copy of parent that is cancelled when one of sigs
// arrives. With no sigs, DefaultSignals are used.
//
// Unlike signal.NotifyContext, every received signal is logged, and signals
// arriving after the first are still consumed so they do not fall through to
// the default action and kill the watchdog while the child finishes.
// Calling stop ends signal delivery and releases resources.
func NotifyContext(parent context.Context, logger *slog.Logger, sigs ...os.Signal) (ctx context.Context, stop context.CancelFunc) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(sigs) == 0 {
		sigs = DefaultSignals
	}

	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	done := make(chan struct{})
	go func() {
		received := 0
		for {
			select {
			case sig := <-sigCh:
				received++
				if received == 1 {
					logger.Info("received_signal",
						"signal", sig.String(),
						"action", "stop_after_child_exits",
					)
					cancel()
					continue
				}
				logger.Warn("received_signal",
					"signal", sig.String(),
					"count", received,
					"action", "already_stopping",
				)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
		cancel()
	}

	return ctx, stop
}
