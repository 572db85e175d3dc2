/*
engine.go - Stock Ledger Engine

PURPOSE:
  ApplyMovement is the ONLY way stock changes. It writes the movement
  fact and the cache update as one logical unit; the store performs the
  cache update as an atomic increment (never read-then-write), which is
  what makes two concurrent movements against the same item both land.

RECONCILIATION:
  If the cache write ever fails after the ledger write succeeded (a store
  without the one-unit guarantee), the cache drifts. Reconcile recomputes
  current_stock from the full movement history and corrects the cache,
  returning a DriftReport either way.
*/
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/pos-engine/ledger"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the persistence contract. AppendMovement must insert the
// movement row and apply delta to the item's cached stock as an atomic
// increment in one unit, returning the post-update stock.
type Store interface {
	InsertItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context, restaurantID string) ([]Item, error)

	AppendMovement(ctx context.Context, m Movement, delta ledger.Amount) (ledger.Amount, error)
	Movements(ctx context.Context, q MovementQuery) ([]Movement, error)
	SumMovements(ctx context.Context, itemID string) (ledger.Amount, error)
	SetStock(ctx context.Context, itemID string, stock ledger.Amount) error

	InsertPurchase(ctx context.Context, p *Purchase) error
	InsertPurchaseLine(ctx context.Context, l *PurchaseLine) error
	SetLastPurchasePrice(ctx context.Context, itemID string, price ledger.Amount) error
	Purchases(ctx context.Context, q PurchaseQuery) ([]Purchase, error)
	PurchaseLines(ctx context.Context, purchaseID string) ([]PurchaseLine, error)
}

// MovementQuery filters movement history reads.
type MovementQuery struct {
	RestaurantID string
	ItemID       string       // optional
	Type         MovementType // optional
	Limit        int          // 0 = store default
}

// Engine applies stock movements and keeps the cached balance truthful.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// =============================================================================
// ITEM LIFECYCLE
// =============================================================================

// CreateItem registers an inventory item. A non-zero opening stock is
// recorded as an opening ADJUST movement so the ledger fully explains the
// cached balance from day one.
func (e *Engine) CreateItem(ctx context.Context, item Item) (*Item, error) {
	if item.RestaurantID == "" || item.Name == "" {
		return nil, fmt.Errorf("%w: restaurant id and name are required", ledger.ErrInvalidInput)
	}

	opening := item.CurrentStock
	item.CurrentStock = ledger.Zero
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Version = 1
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := e.store.InsertItem(ctx, &item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if !opening.IsZero() {
		res, err := e.ApplyMovement(ctx, MovementRequest{
			RestaurantID: item.RestaurantID,
			ItemID:       item.ID,
			Type:         MovementAdjust,
			Quantity:     opening,
			Unit:         item.Unit,
			Reason:       "opening balance",
		})
		if err != nil {
			return nil, err
		}
		item.CurrentStock = res.NewStock
	}

	return &item, nil
}

// =============================================================================
// APPLY MOVEMENT
// =============================================================================

// MovementRequest is one requested stock change. Quantity is a positive
// magnitude, except ADJUST which takes the signed delta.
type MovementRequest struct {
	RestaurantID string
	ItemID       string
	Type         MovementType
	Quantity     ledger.Amount
	Unit         string
	Reason       string
	ReferenceID  string
	PerformedBy  string
}

// MovementResult carries the recorded fact and the post-update balance.
type MovementResult struct {
	Movement Movement
	NewStock ledger.Amount
}

// ApplyMovement validates, writes the movement fact and atomically bumps
// the cached stock. The returned NewStock is the value the increment
// produced, not a separate re-read, so concurrent callers each see their
// own consistent post-state.
func (e *Engine) ApplyMovement(ctx context.Context, req MovementRequest) (*MovementResult, error) {
	delta, err := req.Type.SignedDelta(req.Quantity)
	if err != nil {
		return nil, err
	}

	item, err := e.store.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: inventory item %s", ledger.ErrNotFound, req.ItemID)
	}

	unit := req.Unit
	if unit == "" {
		unit = item.Unit
	}

	m := Movement{
		ID:           uuid.NewString(),
		RestaurantID: req.RestaurantID,
		ItemID:       req.ItemID,
		Type:         req.Type,
		Quantity:     req.Quantity,
		Unit:         unit,
		Reason:       req.Reason,
		ReferenceID:  req.ReferenceID,
		PerformedBy:  req.PerformedBy,
		CreatedAt:    time.Now().UTC(),
	}

	newStock, err := e.store.AppendMovement(ctx, m, delta)
	if err != nil {
		return nil, fmt.Errorf("apply movement: %w", err)
	}

	return &MovementResult{Movement: m, NewStock: newStock}, nil
}

// Movements returns movement history, newest first.
func (e *Engine) Movements(ctx context.Context, q MovementQuery) ([]Movement, error) {
	return e.store.Movements(ctx, q)
}

// LowStockItems returns items at or below their alert threshold.
func (e *Engine) LowStockItems(ctx context.Context, restaurantID string) ([]Item, error) {
	items, err := e.store.ListItems(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	var alerts []Item
	for _, it := range items {
		if it.LowStock() {
			alerts = append(alerts, it)
		}
	}
	return alerts, nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// Reconcile recomputes the item's stock from its full movement history
// and corrects the cache when it has drifted. The ledger rows are facts
// and are never modified.
func (e *Engine) Reconcile(ctx context.Context, itemID string) (*ledger.DriftReport, error) {
	item, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: inventory item %s", ledger.ErrNotFound, itemID)
	}

	computed, err := e.store.SumMovements(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("reconcile item %s: %w", itemID, err)
	}

	report := &ledger.DriftReport{
		EntityID: itemID,
		Cached:   item.CurrentStock,
		Computed: computed,
	}
	if !report.InSync() {
		if err := e.store.SetStock(ctx, itemID, computed); err != nil {
			return report, fmt.Errorf("correct stock for %s: %w", itemID, err)
		}
		report.Corrected = true
	}
	return report, nil
}
