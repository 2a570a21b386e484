// Package config provides configuration management for go-watchdog.
package config

import (
	"time"

	"github.com/randomizedcoder/go-watchdog/internal/supervisor"
)

// Config holds all configuration options for the watchdog.
type Config struct {
	// Child
	Executable string   `json:"executable"`
	Args       []string `json:"args"`

	// Redirection (empty = inherit)
	Stdin  string `json:"stdin"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// Restart policy
	Delay time.Duration `json:"delay"`

	// Observability
	LogFormat       string `json:"log_format"` // json, text
	LogLevel        string `json:"log_level"`  // debug, info, warn, error
	Verbose         bool   `json:"verbose"`
	MetricsAddr     string `json:"metrics_addr"` // empty = disabled
	MetricsTextfile string `json:"metrics_textfile"`

	// Dashboard
	TUIEnabled bool `json:"tui"`
	Summary    bool `json:"summary"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	SkipPreflight bool `json:"skip_preflight"`

	// ConfigFile is the YAML file the settings were read from, if any.
	ConfigFile string `json:"config_file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Delay:     1000 * time.Millisecond,
		LogFormat: "text",
		LogLevel:  "info",
	}
}

// Redirects returns the child stream redirections.
func (c *Config) Redirects() supervisor.Redirects {
	return supervisor.Redirects{
		Stdin:  c.Stdin,
		Stdout: c.Stdout,
		Stderr: c.Stderr,
	}
}
