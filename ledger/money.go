/*
Package ledger provides the shared kernel for the POS ledger engines.

PURPOSE:
  Every balance in the system (inventory stock, customer credit due,
  payroll payout) is a derived value: an append-only sequence of fact
  records plus a cached running total. This package holds what all three
  engines share:
  - Amount: a precise decimal quantity (money or stock, no floats)
  - The error taxonomy for ledger operations
  - Bounded retry for optimistic-concurrency conflicts
  - The drift report produced by cache reconciliation

KEY CONCEPTS IN THIS FILE (money.go):
  Amount wraps decimal.Decimal. Money and stock quantities use the same
  arithmetic; precision errors on either would silently corrupt a cached
  balance, so float64 never touches a stored value.

SEE ALSO:
  - errors.go: Error taxonomy
  - retry.go: ConcurrencyConflict retry helper
  - reconcile.go: Drift detection report
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Precise decimal quantity (money or stock)
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

var Zero = Amount{Value: decimal.Zero}

func NewAmount(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value)}
}

func AmountFromInt(value int64) Amount {
	return Amount{Value: decimal.NewFromInt(value)}
}

// MustParseAmount parses a decimal string, returning zero on malformed input.
// Storage layers use it when scanning columns they wrote themselves.
func MustParseAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero
	}
	return Amount{Value: d}
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg()} }
func (a Amount) MulInt(n int64) Amount        { return Amount{Value: a.Value.Mul(decimal.NewFromInt(n))} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) String() string               { return a.Value.String() }

func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// Sum folds a slice of signed deltas into a balance. This is the
// "recompute from the ledger" primitive behind every reconciliation pass.
func Sum(deltas []Amount) Amount {
	balance := Zero
	for _, d := range deltas {
		balance = balance.Add(d)
	}
	return balance
}
