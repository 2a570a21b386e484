package orchestrator

import (
	"sync"
	"time"

	"github.com/randomizedcoder/go-watchdog/internal/supervisor"
)

// statusTracker records when the supervisor last changed state, which the
// supervisor itself does not keep.
type statusTracker struct {
	mu         sync.RWMutex
	stateSince time.Time
}

func newStatusTracker() *statusTracker {
	return &statusTracker{stateSince: time.Now()}
}

func (t *statusTracker) callbacks() supervisor.Callbacks {
	return supervisor.Callbacks{
		OnStateChange: func(_, _ supervisor.State) {
			t.mu.Lock()
			t.stateSince = time.Now()
			t.mu.Unlock()
		},
	}
}

func (t *statusTracker) since() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stateSince
}
