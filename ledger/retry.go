/*
retry.go - Bounded retry for optimistic-concurrency conflicts

PURPOSE:
  Cached-balance mutations and versioned header updates can fail with
  ErrConcurrencyConflict when two terminals post against the same record
  simultaneously. The propagation policy says the engine re-reads,
  recomputes and re-writes a small bounded number of times before
  surfacing the conflict to the caller.

  Only ErrConcurrencyConflict is retried. Caller errors and storage
  failures surface immediately.
*/
package ledger

import (
	"context"
)

// DefaultRetryAttempts bounds the internal conflict-retry loop.
const DefaultRetryAttempts = 3

// Retry runs fn up to attempts times, stopping on the first non-retryable
// outcome. fn must re-read its inputs on every call: retrying a stale
// computation would reintroduce the lost-update it is meant to prevent.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}
