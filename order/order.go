/*
Package order owns the Order aggregate: an order header, its line items,
the pricing computation and the status state machine.

PURPOSE:
  An order's total_amount is derived state: it must always equal the sum
  of price_at_time x quantity over the lines currently attached. Every
  mutation here (Create, Replace, Transition) is designed around keeping
  that invariant observable - a failed multi-step write surfaces a
  structured error instead of a silently wrong total.

CRITICAL INVARIANTS:
  1. total_amount == SUM(line.price_at_time * line.quantity), always.
  2. price_at_time is a snapshot. Once written it is never recomputed
     from the current catalog price.
  3. Status moves only along the legal transition edges; completed and
     cancelled are terminal. Cancelling a cancelled order is a no-op.
  4. Orders never adjust inventory. Stock moves only through explicit
     Stock Ledger operations (purchases, manual movements); this
     asymmetry is inherited from the source system and preserved.

SEE ALSO:
  - pricing.go: Line resolution and the portion pricing rule
  - service.go: Create / Replace / Transition orchestration
*/
package order

import (
	"time"

	"github.com/warp/pos-engine/ledger"
)

// =============================================================================
// STATUS STATE MACHINE
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions lists the legal forward edges. Cancellation is additionally
// allowed from every non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether s -> next is a legal move.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// =============================================================================
// ORDER TYPES
// =============================================================================

type OrderType string

const (
	TypeDineIn   OrderType = "dine-in"
	TypeTakeaway OrderType = "takeaway"
	TypeOnline   OrderType = "online"
)

func (t OrderType) Valid() bool {
	return t == TypeDineIn || t == TypeTakeaway || t == TypeOnline
}

type Portion string

const (
	PortionFull   Portion = "full"
	PortionHalf   Portion = "half"
	PortionCustom Portion = "custom"
)

func (p Portion) Valid() bool {
	return p == PortionFull || p == PortionHalf || p == PortionCustom
}

// Order is the aggregate header. TotalAmount is derived from the lines.
//
// Version is an optimistic revision counter bumped by every header write;
// Replacing marks an in-flight line swap so readers can distinguish
// "no items" from "mid-replacement".
type Order struct {
	ID                   string
	RestaurantID         string
	TableID              string // empty when no table (takeaway/online)
	Status               Status
	Type                 OrderType
	CustomerName         string
	CustomerPhone        string
	TotalAmount          ledger.Amount
	EstimatedPrepMinutes int
	PaymentMethod        string
	Note                 string
	Replacing            bool
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Line is one order line. Exactly one of ItemID / CustomName is set.
// PriceAtTime is immutable once written.
type Line struct {
	ID          string
	OrderID     string
	ItemID      string // catalog reference, empty for custom lines
	CustomName  string // custom line name, empty for catalog lines
	Quantity    int64
	Portion     Portion
	PriceAtTime ledger.Amount
	Note        string
}

// LineTotal returns price_at_time x quantity for this line.
func (l Line) LineTotal() ledger.Amount {
	return l.PriceAtTime.MulInt(l.Quantity)
}

// TotalOf sums line totals. The order invariant is
// order.TotalAmount == TotalOf(lines).
func TotalOf(lines []Line) ledger.Amount {
	total := ledger.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}
