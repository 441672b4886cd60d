// Package domain contains the core types shared across Sigil.
package domain

import (
	"errors"
	"strings"
)

// ErrNotConfigured indicates a feature cannot run because required
// configuration (a secret, a storage credential) is absent.
// Callers surface it as "feature unavailable" and never retry.
var ErrNotConfigured = errors.New("required configuration is missing")

// ConfigError describes which configuration values are missing for a component.
// It matches ErrNotConfigured with errors.Is.
type ConfigError struct {
	// Component is the feature that cannot run (e.g. "session", "r2").
	Component string

	// Missing lists the configuration keys that were empty.
	Missing []string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) == 0 {
		return e.Component + ": " + ErrNotConfigured.Error()
	}
	return e.Component + ": " + ErrNotConfigured.Error() + ": " + strings.Join(e.Missing, ", ")
}

// Is reports whether target is ErrNotConfigured.
func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}

// NewConfigError creates a ConfigError for a component.
func NewConfigError(component string, missing ...string) *ConfigError {
	return &ConfigError{Component: component, Missing: missing}
}
