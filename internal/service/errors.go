// Package service provides the business logic behind Sigil's admin API.
package service

import "errors"

// Common service errors.
var (
	// ErrInvalidCredentials is returned when the submitted password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDiagnosticBusy is returned when another health check holds the lock.
	ErrDiagnosticBusy = errors.New("another health check is already running")
)
