/*
service.go - Create / Replace / Transition orchestration

PURPOSE:
  The write paths of the Order aggregate. Each operation is a multi-step
  sequence against a store with no cross-operation transaction boundary,
  so the ordering of steps is the correctness mechanism:

  Create:   resolve+price lines -> write header+lines as one unit.
            A store that cannot write both as one unit reports the
            inconsistency; the service surfaces PartialWriteError rather
            than leaving an orphaned empty-priced order.

  Replace:  resolve+price the NEW lines first (validation before any
            destructive delete), then swap under an optimistic version
            check with the "replacing" flag set while lines are absent.
            This is the single riskiest sequence in the core.

  Transition: legal-edge check, optional field attachment, versioned
            header update. Cancel is idempotent from cancelled.

  Version conflicts are retried internally (bounded) per the propagation
  policy; the retry re-reads the order every attempt.
*/
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/pos-engine/ledger"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the persistence the service needs. Implementations must write
// InsertOrder's header and lines as one logical unit, and must make
// ReplaceLines and UpdateOrder conditional on the supplied header version
// (returning ledger.ErrConcurrencyConflict when the check fails).
type Store interface {
	InsertOrder(ctx context.Context, o *Order, lines []Line) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	GetLines(ctx context.Context, orderID string) ([]Line, error)
	ReplaceLines(ctx context.Context, o *Order, lines []Line) error
	UpdateOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id string) error
}

// Service owns all order mutations.
type Service struct {
	store   Store
	catalog Catalog
}

func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateRequest carries everything needed to open an order.
type CreateRequest struct {
	RestaurantID  string
	TableID       string
	Type          OrderType
	Lines         []LineRequest
	CustomerName  string
	CustomerPhone string
	Note          string
}

// Create resolves and prices the lines, then persists header + lines as
// one unit with status pending. On success the returned order's
// TotalAmount exactly equals the sum of persisted price_at_time x
// quantity; no line is silently dropped.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, []Line, error) {
	if req.RestaurantID == "" {
		return nil, nil, fmt.Errorf("%w: restaurant id is required", ledger.ErrInvalidInput)
	}
	orderType := req.Type
	if orderType == "" {
		orderType = TypeDineIn
	}
	if !orderType.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown order type %q", ledger.ErrInvalidInput, req.Type)
	}

	lines, total, err := ResolveLines(ctx, s.catalog, req.Lines)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	o := &Order{
		ID:            uuid.NewString(),
		RestaurantID:  req.RestaurantID,
		TableID:       req.TableID,
		Status:        StatusPending,
		Type:          orderType,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		TotalAmount:   total,
		Note:          req.Note,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i := range lines {
		lines[i].ID = uuid.NewString()
		lines[i].OrderID = o.ID
	}

	if err := s.store.InsertOrder(ctx, o, lines); err != nil {
		var partial *ledger.PartialWriteError
		if errors.As(err, &partial) {
			// Header committed but lines did not: the order exists with a
			// total its lines cannot back. Report, never swallow.
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("create order: %w", err)
	}

	return o, lines, nil
}

// =============================================================================
// REPLACE
// =============================================================================

// Replace performs a full line swap: the new lines are resolved and
// validated before any delete, then old lines are removed, new lines
// inserted and the header total/note updated, all under a version check.
func (s *Service) Replace(ctx context.Context, orderID string, reqs []LineRequest, note string) (*Order, []Line, error) {
	// Compute and validate the replacement BEFORE touching stored lines.
	lines, total, err := ResolveLines(ctx, s.catalog, reqs)
	if err != nil {
		return nil, nil, err
	}

	var updated *Order
	err = ledger.Retry(ctx, ledger.DefaultRetryAttempts, func() error {
		o, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return fmt.Errorf("%w: cannot edit a %s order", ledger.ErrInvalidTransition, o.Status)
		}

		swapped := make([]Line, len(lines))
		copy(swapped, lines)
		for i := range swapped {
			swapped[i].ID = uuid.NewString()
			swapped[i].OrderID = o.ID
		}

		o.TotalAmount = total
		o.Note = note
		o.UpdatedAt = time.Now().UTC()
		if err := s.store.ReplaceLines(ctx, o, swapped); err != nil {
			return err
		}
		updated = o
		lines = swapped
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return updated, lines, nil
}

// =============================================================================
// TRANSITION
// =============================================================================

// TransitionFields are the optional attachments a status move may carry.
type TransitionFields struct {
	EstimatedPrepMinutes int    // attached when moving to preparing
	PaymentMethod        string // attached when moving to completed
}

// Transition moves an order along the status state machine.
// Re-cancelling a cancelled order is a no-op, not an error.
func (s *Service) Transition(ctx context.Context, orderID string, next Status, fields TransitionFields) (*Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ledger.ErrInvalidInput, next)
	}

	var updated *Order
	err := ledger.Retry(ctx, ledger.DefaultRetryAttempts, func() error {
		o, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return err
		}

		// Idempotent terminal cancel.
		if o.Status == StatusCancelled && next == StatusCancelled {
			updated = o
			return nil
		}

		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, o.Status, next)
		}

		o.Status = next
		switch next {
		case StatusPreparing:
			if fields.EstimatedPrepMinutes > 0 {
				o.EstimatedPrepMinutes = fields.EstimatedPrepMinutes
			}
		case StatusCompleted:
			if fields.PaymentMethod != "" {
				o.PaymentMethod = fields.PaymentMethod
			}
		}
		o.UpdatedAt = time.Now().UTC()

		if err := s.store.UpdateOrder(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// READS / ADMIN
// =============================================================================

// Get returns the order with its lines.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, []Line, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.store.GetLines(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, lines, nil
}

// Delete removes an order outright. Admin cleanup only; the normal
// lifecycle never destroys orders.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	if _, err := s.loadOrder(ctx, orderID); err != nil {
		return err
	}
	return s.store.DeleteOrder(ctx, orderID)
}

func (s *Service) loadOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order %s", ledger.ErrNotFound, id)
	}
	return o, nil
}
