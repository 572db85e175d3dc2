package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pos-engine/ledger"
)

// =============================================================================
// AMOUNT ARITHMETIC
// =============================================================================

func TestAmount_ExactDecimalArithmetic(t *testing.T) {
	// The classic float trap: 0.1 + 0.2 must be exactly 0.3.
	a := ledger.NewAmount(0.1).Add(ledger.NewAmount(0.2))
	assert.True(t, a.Equal(ledger.MustParseAmount("0.3")), "got %s", a)

	b := ledger.NewAmount(41.15).MulInt(3)
	assert.Equal(t, "123.45", b.String())

	assert.True(t, ledger.NewAmount(5).Sub(ledger.NewAmount(8)).IsNegative())
	assert.True(t, ledger.NewAmount(2).Neg().Equal(ledger.NewAmount(-2)))
}

func TestSum_FoldsSignedDeltas(t *testing.T) {
	balance := ledger.Sum([]ledger.Amount{
		ledger.NewAmount(10),
		ledger.NewAmount(-5),
		ledger.NewAmount(3),
	})
	assert.True(t, balance.Equal(ledger.NewAmount(8)))

	assert.True(t, ledger.Sum(nil).IsZero())
}

// =============================================================================
// RETRY POLICY
// =============================================================================

func TestRetry_RetriesOnlyConcurrencyConflicts(t *testing.T) {
	// GIVEN: An operation that conflicts twice, then succeeds
	// WHEN: Run under the bounded retry
	// THEN: It is retried to success

	ctx := context.Background()

	calls := 0
	err := ledger.Retry(ctx, ledger.DefaultRetryAttempts, func() error {
		calls++
		if calls < 3 {
			return ledger.ErrConcurrencyConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	// Caller errors surface immediately.
	calls = 0
	err = ledger.Retry(ctx, ledger.DefaultRetryAttempts, func() error {
		calls++
		return fmt.Errorf("bad request: %w", ledger.ErrInvalidInput)
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	assert.Equal(t, 1, calls)

	// A persistent conflict surfaces after the attempt budget.
	calls = 0
	err = ledger.Retry(ctx, ledger.DefaultRetryAttempts, func() error {
		calls++
		return ledger.ErrConcurrencyConflict
	})
	assert.ErrorIs(t, err, ledger.ErrConcurrencyConflict)
	assert.Equal(t, ledger.DefaultRetryAttempts, calls)
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := ledger.Retry(ctx, ledger.DefaultRetryAttempts, func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

func TestPartialWriteError_Taxonomy(t *testing.T) {
	err := fmt.Errorf("create order: %w", &ledger.PartialWriteError{
		Op:        "insert order",
		Completed: []string{"header"},
		Remaining: []string{"lines"},
		Cause:     errors.New("disk full"),
	})

	assert.ErrorIs(t, err, ledger.ErrPartialWrite)
	assert.False(t, ledger.IsRetryable(err))

	var partial *ledger.PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"header"}, partial.Completed)
	assert.Contains(t, partial.Error(), "remaining: lines")
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, ledger.IsRetryable(fmt.Errorf("x: %w", ledger.ErrConcurrencyConflict)))
	assert.True(t, ledger.IsClientError(ledger.ErrInvalidInput))
	assert.True(t, ledger.IsClientError(ledger.ErrInvalidTransition))
	assert.True(t, ledger.IsNotFound(fmt.Errorf("order abc: %w", ledger.ErrNotFound)))
	assert.False(t, ledger.IsClientError(ledger.ErrStorageUnavailable))
}

// =============================================================================
// DRIFT REPORT
// =============================================================================

func TestDriftReport(t *testing.T) {
	clean := ledger.DriftReport{
		EntityID: "item-1",
		Cached:   ledger.NewAmount(30),
		Computed: ledger.NewAmount(30),
	}
	assert.True(t, clean.InSync())
	assert.True(t, clean.Drift().IsZero())

	drifted := ledger.DriftReport{
		EntityID: "item-1",
		Cached:   ledger.NewAmount(99),
		Computed: ledger.NewAmount(30),
	}
	assert.False(t, drifted.InSync())
	assert.True(t, drifted.Drift().Equal(ledger.NewAmount(-69)), "drift is computed minus cached")
}
