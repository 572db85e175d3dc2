/*
Package inventory implements the Stock Ledger Engine and the Purchase
Workflow.

PURPOSE:
  An inventory item's current_stock is never authoritative on its own: it
  is the cached sum of an append-only movement ledger. Every stock change
  writes a movement fact AND bumps the cache atomically at the storage
  layer; a reconciliation pass recomputes the cache from history when
  drift is suspected.

CRITICAL INVARIANTS:
  1. current_stock == stock_at_epoch + SUM(signed movement quantities).
     Items created with an opening stock get an opening ADJUST movement
     so the epoch baseline stays zero.
  2. Movements are append-only facts. No update, no delete.
  3. The cache update is an atomic increment at the storage layer, never
     a read-then-write. Two concurrent movements against the same item
     must both land.
  4. No floor on current_stock: concurrent OUT/WASTAGE may drive it
     negative. Whether to clamp is an open product question; the engine
     reports, it does not silently fix.

SEE ALSO:
  - engine.go: ApplyMovement and Reconcile
  - purchase.go: The purchase fan-out workflow
*/
package inventory

import (
	"fmt"
	"time"

	"github.com/warp/pos-engine/ledger"
)

// =============================================================================
// MOVEMENT TYPES - Sign rules
// =============================================================================

type MovementType string

const (
	MovementIn      MovementType = "IN"
	MovementOut     MovementType = "OUT"
	MovementAdjust  MovementType = "ADJUST"
	MovementWastage MovementType = "WASTAGE"
	MovementReturn  MovementType = "RETURN"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementWastage, MovementReturn:
		return true
	}
	return false
}

// SignedDelta converts a movement quantity into the signed stock delta:
// +1 for IN/RETURN, -1 for OUT/WASTAGE, raw signed value for ADJUST.
// Non-ADJUST quantities must be strictly positive; ADJUST must be
// non-zero (its sign IS the direction).
func (t MovementType) SignedDelta(quantity ledger.Amount) (ledger.Amount, error) {
	switch t {
	case MovementIn, MovementReturn:
		if !quantity.IsPositive() {
			return ledger.Zero, fmt.Errorf("%w: %s quantity must be positive", ledger.ErrInvalidInput, t)
		}
		return quantity, nil
	case MovementOut, MovementWastage:
		if !quantity.IsPositive() {
			return ledger.Zero, fmt.Errorf("%w: %s quantity must be positive", ledger.ErrInvalidInput, t)
		}
		return quantity.Neg(), nil
	case MovementAdjust:
		if quantity.IsZero() {
			return ledger.Zero, fmt.Errorf("%w: ADJUST delta must be non-zero", ledger.ErrInvalidInput)
		}
		return quantity, nil
	default:
		return ledger.Zero, fmt.Errorf("%w: unknown movement type %q", ledger.ErrInvalidInput, t)
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// Item is an inventory item. CurrentStock is the cached balance; Version
// is bumped by every atomic cache update.
type Item struct {
	ID                string
	RestaurantID      string
	Name              string
	Unit              string
	CurrentStock      ledger.Amount
	MinStockLevel     ledger.Amount
	LastPurchasePrice ledger.Amount
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LowStock reports whether the item is at or below its alert threshold.
func (i Item) LowStock() bool {
	return !i.CurrentStock.GreaterThan(i.MinStockLevel) || i.CurrentStock.IsZero()
}

// Movement is one immutable ledger fact. Quantity is a magnitude except
// for ADJUST, where it is the signed delta itself.
type Movement struct {
	ID           string
	RestaurantID string
	ItemID       string
	Type         MovementType
	Quantity     ledger.Amount
	Unit         string
	Reason       string
	ReferenceID  string // originating purchase or manual action
	PerformedBy  string
	CreatedAt    time.Time
}

// Purchase is an invoice header owning 1..N lines. A successful purchase
// produces exactly one IN movement per line, referencing the purchase.
type Purchase struct {
	ID            string
	RestaurantID  string
	VendorID      string
	InvoiceNo     string
	InvoiceDate   time.Time
	TotalAmount   ledger.Amount
	PaidAmount    ledger.Amount
	PaymentStatus string
	Notes         string
	CreatedAt     time.Time
}

// PurchaseLine is one invoice line.
type PurchaseLine struct {
	ID         string
	PurchaseID string
	ItemID     string
	Quantity   ledger.Amount
	Unit       string
	UnitPrice  ledger.Amount
	LineTotal  ledger.Amount
}
