// Package stats tracks the run history of the supervised child and formats
// the exit summary.
package stats

import (
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/influxdata/tdigest"

	"github.com/randomizedcoder/go-watchdog/internal/supervisor"
)

// RunHistory accumulates per-child statistics for one watchdog run.
// Uptime percentiles come from a t-digest so memory stays bounded no matter
// how often the child restarts. Safe for concurrent use.
type RunHistory struct {
	mu sync.Mutex

	startTime time.Time
	spawns    int
	restarts  int

	exitsByKind map[supervisor.OutcomeKind]int
	exitCodes   map[int]int
	signals     map[syscall.Signal]int

	uptimeDigest *tdigest.TDigest
	uptimeCount  int
	uptimeTotal  time.Duration
	uptimeMin    time.Duration
	uptimeMax    time.Duration

	last      supervisor.Outcome
	lastExit  time.Time
	hasExited bool
}

// NewRunHistory creates an empty history starting now.
func NewRunHistory() *RunHistory {
	return &RunHistory{
		startTime:    time.Now(),
		exitsByKind:  make(map[supervisor.OutcomeKind]int),
		exitCodes:    make(map[int]int),
		signals:      make(map[syscall.Signal]int),
		uptimeDigest: tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
	}
}

// RecordStart records a spawned child.
func (h *RunHistory) RecordStart() {
	h.mu.Lock()
	h.spawns++
	h.mu.Unlock()
}

// RecordRestart records a restart after the delay elapsed.
func (h *RunHistory) RecordRestart() {
	h.mu.Lock()
	h.restarts++
	h.mu.Unlock()
}

// RecordExit records a classified exit and how long the child ran.
func (h *RunHistory) RecordExit(outcome supervisor.Outcome, uptime time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.exitsByKind[outcome.Kind]++
	switch outcome.Kind {
	case supervisor.OutcomeExitCode:
		h.exitCodes[outcome.Code]++
	case supervisor.OutcomeSignaled:
		h.signals[outcome.Signal]++
	}

	h.uptimeDigest.Add(uptime.Seconds(), 1)
	if h.uptimeCount == 0 || uptime < h.uptimeMin {
		h.uptimeMin = uptime
	}
	if uptime > h.uptimeMax {
		h.uptimeMax = uptime
	}
	h.uptimeCount++
	h.uptimeTotal += uptime

	h.last = outcome
	h.lastExit = time.Now()
	h.hasExited = true
}

// Callbacks returns supervisor callbacks that feed this history.
func (h *RunHistory) Callbacks() supervisor.Callbacks {
	return supervisor.Callbacks{
		OnStart:   func(int, int) { h.RecordStart() },
		OnExit:    h.RecordExit,
		OnRestart: func(int, time.Duration) { h.RecordRestart() },
	}
}

// CodeCount is an exit code (or signal number) and how often it occurred.
type CodeCount struct {
	Code  int
	Count int
}

// Snapshot is a point-in-time copy of a RunHistory.
type Snapshot struct {
	Elapsed  time.Duration
	Spawns   int
	Restarts int

	NormalExits   int
	AbnormalExits int
	SignaledExits int

	// ExitCodes and Signals are sorted by descending count, then code.
	ExitCodes []CodeCount
	Signals   []CodeCount

	UptimeCount int
	UptimeMin   time.Duration
	UptimeMax   time.Duration
	UptimeMean  time.Duration
	UptimeP50   time.Duration
	UptimeP95   time.Duration
	UptimeP99   time.Duration

	Last          supervisor.Outcome
	HasExited     bool
	SinceLastExit time.Duration
}

// Snapshot returns the current statistics.
func (h *RunHistory) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Snapshot{
		Elapsed:       time.Since(h.startTime),
		Spawns:        h.spawns,
		Restarts:      h.restarts,
		NormalExits:   h.exitsByKind[supervisor.OutcomeNormal],
		AbnormalExits: h.exitsByKind[supervisor.OutcomeExitCode],
		SignaledExits: h.exitsByKind[supervisor.OutcomeSignaled],
		ExitCodes:     sortedCounts(h.exitCodes),
		UptimeCount:   h.uptimeCount,
		UptimeMin:     h.uptimeMin,
		UptimeMax:     h.uptimeMax,
		Last:          h.last,
		HasExited:     h.hasExited,
	}

	signals := make(map[int]int, len(h.signals))
	for sig, n := range h.signals {
		signals[int(sig)] = n
	}
	s.Signals = sortedCounts(signals)

	if h.uptimeCount > 0 {
		s.UptimeMean = h.uptimeTotal / time.Duration(h.uptimeCount)
		s.UptimeP50 = h.quantile(0.50)
		s.UptimeP95 = h.quantile(0.95)
		s.UptimeP99 = h.quantile(0.99)
	}
	if h.hasExited {
		s.SinceLastExit = time.Since(h.lastExit)
	}

	return s
}

// quantile reads the digest, clamped to the observed range. Caller holds mu.
func (h *RunHistory) quantile(q float64) time.Duration {
	d := time.Duration(h.uptimeDigest.Quantile(q) * float64(time.Second))
	if d < h.uptimeMin {
		d = h.uptimeMin
	}
	if d > h.uptimeMax {
		d = h.uptimeMax
	}
	return d
}

func sortedCounts(m map[int]int) []CodeCount {
	out := make([]CodeCount, 0, len(m))
	for code, n := range m {
		out = append(out, CodeCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out
}
