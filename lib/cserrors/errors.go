// Package cserrors provides the error taxonomy and error logging utilities for bitrecover.
package cserrors

import (
	"errors"

	"github.com/unclesp1d3r/bitrecover/appstate"
)

var (
	// ErrMalformedRecord is returned when a hash record fails to parse. Not retryable.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnsupportedStrategy is returned when a candidate strategy or oracle configuration
	// cannot be used. Not retryable.
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	// ErrOracleFailure marks a transient verification failure (crash, bad exit code, I/O).
	// The runner absorbs it into a paused session.
	ErrOracleFailure = errors.New("oracle failure")
	// ErrConflictingResult is returned when a different plaintext is recorded for an
	// already-recovered fingerprint. Never auto-resolved.
	ErrConflictingResult = errors.New("conflicting result")
)

// Severity describes how serious a classified failure is.
type Severity string

// Severity levels, ordered from least to most serious.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
	SeverityFatal    Severity = "fatal"
)

//nolint:gochecknoglobals // Fixed ordering table
var severityOrder = []Severity{
	SeverityInfo,
	SeverityWarning,
	SeverityMinor,
	SeverityMajor,
	SeverityCritical,
	SeverityFatal,
}

// Rank orders severities from 0 (info) upward. Unknown values rank below info.
func (s Severity) Rank() int {
	for i, level := range severityOrder {
		if level == s {
			return i
		}
	}

	return -1
}

// IsRetryable reports whether err is a transient failure that a resumed run may clear.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOracleFailure)
}

// IsPermanent reports whether err carries one of the non-retryable sentinels. A resumed
// run would fail the same way until the operator intervenes.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMalformedRecord) ||
		errors.Is(err, ErrUnsupportedStrategy) ||
		errors.Is(err, ErrConflictingResult)
}

// LogAndReturn logs message with the error and any extra key/value context through the
// error logger, then returns err unchanged so callers can write `return cserrors.LogAndReturn(...)`.
func LogAndReturn(message string, err error, keyvals ...any) error {
	appstate.ErrorLogger.Error(message, append([]any{"error", err}, keyvals...)...)

	return err
}
