package config

import (
	"errors"
	"fmt"
	"net"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or all problems joined with errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Executable == "" {
		errs = append(errs, ValidationError{
			Field:   "executable",
			Message: "an executable to supervise is required",
		})
	}

	if cfg.Delay < 0 {
		errs = append(errs, ValidationError{
			Field:   "delay",
			Message: fmt.Sprintf("must not be negative (got %v)", cfg.Delay),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", cfg.LogLevel),
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: fmt.Sprintf("must be host:port (%v)", err),
			})
		}
	}

	// The dashboard owns the terminal, so the child must not write to it.
	if cfg.TUIEnabled && (cfg.Stdout == "" || cfg.Stderr == "") {
		errs = append(errs, ValidationError{
			Field:   "tui",
			Message: "requires --stdout and --stderr so the child does not draw over the dashboard",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
