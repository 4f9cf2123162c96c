package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportFailure is returned when the model backend stayed unreachable
	// (timeouts, connection errors, non-2xx) after every retry attempt.
	ErrTransportFailure = errors.New("transport failure")

	// ErrParseFailure marks a backend answer without a valid structured object.
	ErrParseFailure = errors.New("parse failure")

	// ErrRecovery is returned when a log cannot be resumed safely.
	ErrRecovery = errors.New("recovery failure")

	// ErrConfiguration marks an invalid experiment configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrModelCallLimit is returned once a run exhausts its model call budget.
	ErrModelCallLimit = errors.New("model call limit exceeded")
)

// ConfigError describes an invalid configuration field. It matches
// ErrConfiguration via errors.Is.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for field '%s': %s", e.Field, e.Message)
}

// Unwrap exposes the ErrConfiguration sentinel.
func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// RecoveryError carries the log location that could not be recovered.
type RecoveryError struct {
	Round  int
	Reason string
}

// Error implements the error interface.
func (e *RecoveryError) Error() string {
	return fmt.Sprintf("recovery failure at round %d: %s", e.Round, e.Reason)
}

// Unwrap exposes the ErrRecovery sentinel.
func (e *RecoveryError) Unwrap() error { return ErrRecovery }
