/*
errors.go - Centralized error types for the depreciation engine

ERROR CATEGORIES:
  1. Validation errors - malformed input (cost, date, id, useful life)
  2. Not-found errors - no asset or no record for the requested asset
  3. Storage errors - the document store failed or is unreachable

PROPAGATION:
  Classification and schedule computation are pure and never touch the
  store. Manager and Reconciler wrap every store fault in
  StorageUnavailableError. Nothing is retried here; the operations are
  idempotent so callers may retry.

USAGE:
  if depreciation.IsClientError(err) { ...400... }
  if depreciation.IsNotFound(err)    { ...404... }
*/
package depreciation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation = errors.New("validation failed")

	ErrNotFound = errors.New("not found")

	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrRecordExists is returned by user-driven creation when the asset
	// already has an active record.
	ErrRecordExists = errors.New("depreciation record already exists")

	// ErrMethodNotImplemented is returned by strategies that need data the
	// asset does not carry.
	ErrMethodNotImplemented = errors.New("depreciation method not implemented")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports a field-level input problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError reports a missing asset or record.
type NotFoundError struct {
	Kind string // "asset" or "record"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StorageUnavailableError wraps a store fault.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *StorageUnavailableError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

func storageErr(op string, err error) error {
	return &StorageUnavailableError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrMethodNotImplemented)
}

// IsNotFound returns true if the error indicates a missing asset or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable returns true if the store could not serve the operation.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
