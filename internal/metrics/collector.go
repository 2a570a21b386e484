// Package metrics provides Prometheus metrics for go-watchdog.
//
// All metrics live on a caller-supplied registry so the HTTP endpoint and
// the textfile export see the same values.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/randomizedcoder/go-watchdog/internal/supervisor"
)

// Namespace prefixes every metric name.
const Namespace = "watchdog"

// allStates are exported as one gauge series each; exactly one is 1.
var allStates = []supervisor.State{
	supervisor.StateCreated,
	supervisor.StateStarting,
	supervisor.StateRunning,
	supervisor.StateBackoff,
	supervisor.StateStopped,
	supervisor.StateFailed,
}

// Collector manages all Prometheus metrics for one supervised child.
type Collector struct {
	info          *prometheus.GaugeVec
	startTime     prometheus.Gauge
	restartDelay  prometheus.Gauge
	state         *prometheus.GaugeVec
	childRunning  prometheus.Gauge
	childPID      prometheus.Gauge
	startsTotal   prometheus.Counter
	restartsTotal prometheus.Counter
	exitsTotal    *prometheus.CounterVec
	lastExitCode  prometheus.Gauge
	uptime        prometheus.Histogram

	mu            sync.Mutex
	totalStarts   int64
	totalRestarts int64
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version    string
	Executable string
	Delay      time.Duration
}

// NewRegistry returns a registry preloaded with the Go runtime, process and
// build info collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	return registry
}

// NewCollectorWithRegistry creates a collector and registers its metrics.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "info",
			Help:      "Information about the watchdog (value always 1)",
		}, []string{"version", "executable"}),

		startTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "start_time_seconds",
			Help:      "Unix time the watchdog started",
		}),

		restartDelay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "restart_delay_seconds",
			Help:      "Configured delay between an abnormal exit and the next spawn",
		}),

		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "state",
			Help:      "Current supervisor state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),

		childRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "child_running",
			Help:      "Whether a child process is currently running",
		}),

		childPID: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "child_pid",
			Help:      "PID of the running child (0 when none)",
		}),

		startsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "child_starts_total",
			Help:      "Total child processes spawned",
		}),

		restartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "child_restarts_total",
			Help:      "Total restarts after an abnormal exit",
		}),

		exitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "child_exits_total",
			Help:      "Child exits by outcome (normal, exit_code, signaled)",
		}, []string{"outcome"}),

		lastExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "child_last_exit_code",
			Help:      "Exit status of the last child, 128+signal when signaled",
		}),

		uptime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "child_uptime_seconds",
			Help:      "How long each child ran before exiting",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 12), // 10ms .. ~11.6h
		}),
	}

	registry.MustRegister(
		c.info,
		c.startTime,
		c.restartDelay,
		c.state,
		c.childRunning,
		c.childPID,
		c.startsTotal,
		c.restartsTotal,
		c.exitsTotal,
		c.lastExitCode,
		c.uptime,
	)

	// Set initial values
	c.info.WithLabelValues(cfg.Version, cfg.Executable).Set(1)
	c.startTime.Set(float64(time.Now().Unix()))
	c.restartDelay.Set(cfg.Delay.Seconds())
	for _, kind := range []supervisor.OutcomeKind{
		supervisor.OutcomeNormal,
		supervisor.OutcomeExitCode,
		supervisor.OutcomeSignaled,
	} {
		c.exitsTotal.WithLabelValues(kind.String())
	}
	c.SetState(supervisor.StateCreated)

	return c
}

// =============================================================================
// Event Recording Methods
// =============================================================================

// SetState marks newState as the active supervisor state.
func (c *Collector) SetState(newState supervisor.State) {
	for _, s := range allStates {
		v := 0.0
		if s == newState {
			v = 1
		}
		c.state.WithLabelValues(s.String()).Set(v)
	}
}

// ChildStarted records a child start event.
func (c *Collector) ChildStarted(pid int) {
	c.startsTotal.Inc()
	c.childRunning.Set(1)
	c.childPID.Set(float64(pid))

	c.mu.Lock()
	c.totalStarts++
	c.mu.Unlock()
}

// ChildRestarted records a restart after the delay elapsed.
func (c *Collector) ChildRestarted() {
	c.restartsTotal.Inc()

	c.mu.Lock()
	c.totalRestarts++
	c.mu.Unlock()
}

// RecordExit records a classified child exit.
func (c *Collector) RecordExit(outcome supervisor.Outcome, uptime time.Duration) {
	c.exitsTotal.WithLabelValues(outcome.Kind.String()).Inc()
	c.lastExitCode.Set(float64(outcome.ShellCode()))
	c.uptime.Observe(uptime.Seconds())
	c.childRunning.Set(0)
	c.childPID.Set(0)
}

// Callbacks returns supervisor callbacks that feed this collector.
func (c *Collector) Callbacks() supervisor.Callbacks {
	return supervisor.Callbacks{
		OnStateChange: func(_, newState supervisor.State) { c.SetState(newState) },
		OnStart:       func(_ int, pid int) { c.ChildStarted(pid) },
		OnExit:        c.RecordExit,
		OnRestart:     func(int, time.Duration) { c.ChildRestarted() },
	}
}

// TotalStarts returns the total number of child starts.
func (c *Collector) TotalStarts() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalStarts
}

// TotalRestarts returns the total number of restarts.
func (c *Collector) TotalRestarts() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalRestarts
}
