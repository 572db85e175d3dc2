/*
errors.go - Centralized error taxonomy for the ledger engines

PURPOSE:
  All cross-engine error types in one place. Domain packages wrap these
  with additional context (which order, which line, which item).

ERROR CATEGORIES:
  1. Caller errors    - InvalidInput, NotFound, InvalidTransition
  2. Concurrency      - ConcurrencyConflict (retryable)
  3. Partial failures - PartialWrite (multi-step sequence stopped midway)
  4. Store failures   - StorageUnavailable

PROPAGATION POLICY:
  - Caller errors return immediately, no retry.
  - ConcurrencyConflict is retried internally a small bounded number of
    times (see retry.go) before surfacing.
  - PartialWrite is NEVER hidden: it always names which sub-steps
    completed so an operator can reconcile manually.
  - StorageUnavailable is fatal for the current request.

USAGE:
  if errors.Is(err, ledger.ErrNotFound) { ... }

  var partial *inventory.PartialPurchaseError
  if errors.As(err, &partial) { ... partial.Succeeded ... }
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for missing or malformed fields.
	// Caller error; never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced record (catalog item,
	// order, customer, staff, inventory item) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned for an illegal order-status move.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrencyConflict is returned when an optimistic version check
	// failed on a balance or header update. Retryable.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")

	// ErrPartialWrite is returned when a multi-step write sequence
	// succeeded partially. The wrapping error carries the step detail.
	ErrPartialWrite = errors.New("partial write failure")

	// ErrStorageUnavailable is returned when the backing store itself
	// cannot be reached. Fatal for the current request.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PartialWriteError reports a multi-step sequence that stopped midway.
// Completed and Remaining name the sub-steps so the partial state is
// inspectable; the system never pretends the operation fully succeeded.
type PartialWriteError struct {
	Op        string
	Completed []string
	Remaining []string
	Cause     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: partial write (completed: %s; remaining: %s): %v",
		e.Op, strings.Join(e.Completed, ", "), strings.Join(e.Remaining, ", "), e.Cause)
}

func (e *PartialWriteError) Unwrap() error { return ErrPartialWrite }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
