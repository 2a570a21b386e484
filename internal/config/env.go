package config

import "os"

// Environment variables that override the built-in defaults.
const (
	EnvLogLevel    = "WATCHDOG_LOG_LEVEL"
	EnvLogFormat   = "WATCHDOG_LOG_FORMAT"
	EnvMetricsAddr = "WATCHDOG_METRICS_ADDR"
)

// ApplyEnv overrides cfg with values from the environment. lookup is
// normally os.LookupEnv; empty values are ignored.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.LogFormat = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok && v != "" {
		cfg.MetricsAddr = v
	}
}
