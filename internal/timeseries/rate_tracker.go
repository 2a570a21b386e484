// Package timeseries tracks how often an event happens over rolling time
// windows (1m, 5m, 15m), like a load average for child restarts.
//
// Thread-safe: Add() and GetStats() share one RWMutex. Memory is bounded by
// the ring buffer (~32KB for 1024 samples).
package timeseries

import (
	"sync"
	"time"
)

const (
	// ringBufferSize is the number of events to retain. Older events only
	// count toward Total and the overall rate.
	ringBufferSize = 1024

	// Window durations for rolling rates
	window1m  = 1 * time.Minute
	window5m  = 5 * time.Minute
	window15m = 15 * time.Minute
)

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

// realClock uses time.Now() for production.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// sample is the cumulative event count right after an event.
type sample struct {
	timestamp time.Time
	count     int64
}

// RateTracker counts events and computes rolling per-minute rates.
//
// Usage:
//
//	tracker := NewRateTracker()
//	tracker.Add(1) // on every restart
//	stats := tracker.GetStats()
type RateTracker struct {
	mu       sync.RWMutex
	total    int64
	samples  []sample
	writeIdx int // Next write position once the buffer is full

	startTime time.Time
	clock     Clock
}

// RateStats contains rates at a point in time, in events per minute.
type RateStats struct {
	Total int64

	PerMinute1m  float64
	PerMinute5m  float64
	PerMinute15m float64

	// PerMinuteOverall is the rate since tracking started.
	PerMinuteOverall float64
}

// NewRateTracker creates a new tracker with real clock.
func NewRateTracker() *RateTracker {
	return NewRateTrackerWithClock(realClock{})
}

// NewRateTrackerWithClock creates a tracker with custom clock for testing.
func NewRateTrackerWithClock(clock Clock) *RateTracker {
	now := clock.Now()
	t := &RateTracker{
		samples:   make([]sample, 0, ringBufferSize),
		startTime: now,
		clock:     clock,
	}
	// Baseline at t=0 with no events
	t.samples = append(t.samples, sample{timestamp: now, count: 0})
	return t
}

// Add records n events happening now. Values <= 0 are ignored.
func (t *RateTracker) Add(n int64) {
	if n <= 0 {
		return
	}
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.total += n
	s := sample{timestamp: now, count: t.total}

	if len(t.samples) < ringBufferSize {
		t.samples = append(t.samples, s)
	} else {
		t.samples[t.writeIdx] = s
		t.writeIdx = (t.writeIdx + 1) % ringBufferSize
	}
}

// GetStats computes the current rates.
func (t *RateTracker) GetStats() RateStats {
	now := t.clock.Now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := RateStats{Total: t.total}

	if elapsed := now.Sub(t.startTime); elapsed > 0 {
		stats.PerMinuteOverall = float64(t.total) / elapsed.Minutes()
	}

	stats.PerMinute1m = t.perMinute(now, window1m)
	stats.PerMinute5m = t.perMinute(now, window5m)
	stats.PerMinute15m = t.perMinute(now, window15m)

	return stats
}

// perMinute returns the event rate over the window ending at now. A window
// longer than the tracking time is shortened to it.
// Must be called with mu held (at least RLock).
func (t *RateTracker) perMinute(now time.Time, window time.Duration) float64 {
	span := window
	if elapsed := now.Sub(t.startTime); elapsed < span {
		span = elapsed
	}
	if span <= 0 {
		return 0
	}

	events := t.total - t.countAt(now.Add(-window))
	return float64(events) / span.Minutes()
}

// countAt returns the cumulative count as of ts. If the sample covering ts
// has been overwritten, the oldest retained sample is used, which
// undercounts the window.
// Must be called with mu held.
func (t *RateTracker) countAt(ts time.Time) int64 {
	var best *sample
	for i := range t.samples {
		s := &t.samples[i]
		if s.timestamp.After(ts) {
			continue
		}
		// Events in the same instant: the higher count is the later one.
		if best == nil || s.timestamp.After(best.timestamp) ||
			(s.timestamp.Equal(best.timestamp) && s.count > best.count) {
			best = s
		}
	}
	if best == nil {
		best = t.oldestSample()
	}
	if best == nil {
		return 0
	}
	return best.count
}

// oldestSample returns the oldest sample in the ring buffer.
// Must be called with mu held.
func (t *RateTracker) oldestSample() *sample {
	if len(t.samples) == 0 {
		return nil
	}

	if len(t.samples) < ringBufferSize {
		return &t.samples[0]
	}

	// Buffer full - oldest is at writeIdx (next to be overwritten)
	return &t.samples[t.writeIdx]
}

// Reset clears all data and restarts tracking.
func (t *RateTracker) Reset() {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = 0
	t.samples = t.samples[:0]
	t.samples = append(t.samples, sample{timestamp: now, count: 0})
	t.writeIdx = 0
	t.startTime = now
}

// SampleCount returns the number of samples in the ring buffer.
// Useful for testing.
func (t *RateTracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}
