// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// Mapping errors.
	ErrNoLabels    = errors.New("no labels to map")
	ErrNoAccounts  = errors.New("no accounts to map against")
	ErrUnknownMode = errors.New("unknown matcher mode")
)

// MalformedInputError indicates that the provided labels or accounts cannot
// be used as given.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

// NewMalformedInputError creates a malformed input error.
func NewMalformedInputError(reason string) error {
	return &MalformedInputError{Reason: reason}
}

// ConfigurationError indicates an invalid tunable or config file value.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(reason string) error {
	return &ConfigurationError{Reason: reason}
}

// RecoverableMatchFailure indicates a semantic matcher batch failed in a way
// the pipeline can absorb by keeping the lexical results for that batch.
type RecoverableMatchFailure struct {
	Err     error
	BatchID string
}

func (e *RecoverableMatchFailure) Error() string {
	if e.BatchID != "" {
		return fmt.Sprintf("recoverable match failure for batch %s: %v", e.BatchID, e.Err)
	}
	return fmt.Sprintf("recoverable match failure: %v", e.Err)
}

func (e *RecoverableMatchFailure) Unwrap() error {
	return e.Err
}

// NewRecoverableMatchFailure wraps a batch-level matcher error.
func NewRecoverableMatchFailure(batchID string, err error) error {
	return &RecoverableMatchFailure{BatchID: batchID, Err: err}
}

// ValidationBlockedError indicates a session cannot be accepted because
// unmapped labels remain while full coverage is required.
type ValidationBlockedError struct {
	Unmapped []string
}

func (e *ValidationBlockedError) Error() string {
	return fmt.Sprintf("validation blocked: %d unmapped labels remain", len(e.Unmapped))
}

// NewValidationBlockedError creates a validation blocked error for the given
// unmapped labels.
func NewValidationBlockedError(unmapped []string) error {
	return &ValidationBlockedError{Unmapped: unmapped}
}
