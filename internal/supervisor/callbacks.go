package supervisor

import "time"

// MergeCallbacks returns Callbacks that invoke each of cbs in order.
// Nil hooks are skipped.
func MergeCallbacks(cbs ...Callbacks) Callbacks {
	return Callbacks{
		OnStateChange: func(oldState, newState State) {
			for _, cb := range cbs {
				if cb.OnStateChange != nil {
					cb.OnStateChange(oldState, newState)
				}
			}
		},
		OnStart: func(attempt int, pid int) {
			for _, cb := range cbs {
				if cb.OnStart != nil {
					cb.OnStart(attempt, pid)
				}
			}
		},
		OnExit: func(outcome Outcome, uptime time.Duration) {
			for _, cb := range cbs {
				if cb.OnExit != nil {
					cb.OnExit(outcome, uptime)
				}
			}
		},
		OnRestart: func(restart int, delay time.Duration) {
			for _, cb := range cbs {
				if cb.OnRestart != nil {
					cb.OnRestart(restart, delay)
				}
			}
		},
	}
}
