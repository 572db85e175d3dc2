/*
purchase.go - Purchase Workflow

PURPOSE:
  One user action fans out into a purchase header, N purchase lines and
  N stock ledger applications. This is the highest-fan-out, highest-risk
  write sequence in the system and it has NO rollback: the policy is fail
  forward, report partial state.

FAILURE SEMANTICS:
  Lines are processed strictly in order. A failure on line k leaves a
  deterministic, inspectable boundary: lines 1..k-1 fully applied (line
  row + IN movement + last-purchase-price), lines k..N untouched. The
  header remains either way. The caller receives a structured
  PartialPurchaseError naming both sides - never a generic failure that
  pretends nothing happened.
*/
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/pos-engine/ledger"
)

// PurchaseQuery filters purchase history reads.
type PurchaseQuery struct {
	RestaurantID string
	VendorID     string // optional
	From, To     time.Time
}

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// PurchaseRequest is one invoice entry.
type PurchaseRequest struct {
	RestaurantID  string
	VendorID      string
	InvoiceNo     string
	InvoiceDate   time.Time
	PaidAmount    ledger.Amount
	PaymentStatus string
	Notes         string
	PerformedBy   string
	Lines         []PurchaseLineRequest
}

// PurchaseLineRequest is one invoice line.
type PurchaseLineRequest struct {
	ItemID    string
	Quantity  ledger.Amount
	Unit      string
	UnitPrice ledger.Amount
}

// PurchaseReceipt is the full outcome of a successful purchase.
type PurchaseReceipt struct {
	Purchase  Purchase
	Lines     []PurchaseLine
	Movements []Movement
}

// LineOutcome describes one line's fate inside a partial failure.
type LineOutcome struct {
	Index  int    `json:"index"` // 1-based, matching the request order
	ItemID string `json:"item_id"`
	Error  string `json:"error,omitempty"`
}

// PartialPurchaseError reports a purchase that stopped at some line.
// Succeeded lines are fully applied (line row, IN movement, price);
// Failed holds the failing line first, then every unprocessed one.
type PartialPurchaseError struct {
	PurchaseID string        `json:"purchase_id"`
	Succeeded  []LineOutcome `json:"succeeded"`
	Failed     []LineOutcome `json:"failed"`
	Cause      error         `json:"-"`
}

func (e *PartialPurchaseError) Error() string {
	var applied []string
	for _, s := range e.Succeeded {
		applied = append(applied, fmt.Sprintf("line %d", s.Index))
	}
	return fmt.Sprintf("purchase %s partially applied (%s of %d lines): %v",
		e.PurchaseID, strings.Join(applied, ", "), len(e.Succeeded)+len(e.Failed), e.Cause)
}

func (e *PartialPurchaseError) Unwrap() error { return ledger.ErrPartialWrite }

// =============================================================================
// RECORD PURCHASE
// =============================================================================

// RecordPurchase creates the header, then per line: the line row, an IN
// movement referencing the purchase, and the item's last-purchase-price.
// Processing is sequential by design so a failure leaves a clean prefix.
func (e *Engine) RecordPurchase(ctx context.Context, req PurchaseRequest) (*PurchaseReceipt, error) {
	if req.RestaurantID == "" {
		return nil, fmt.Errorf("%w: restaurant id is required", ledger.ErrInvalidInput)
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: purchase has no lines", ledger.ErrInvalidInput)
	}

	// Header total is arithmetic over the request; line-level validation
	// happens in the loop so a bad line k never blocks lines 1..k-1.
	p := Purchase{
		ID:            uuid.NewString(),
		RestaurantID:  req.RestaurantID,
		VendorID:      req.VendorID,
		InvoiceNo:     req.InvoiceNo,
		InvoiceDate:   req.InvoiceDate,
		TotalAmount:   purchaseTotal(req.Lines),
		PaidAmount:    req.PaidAmount,
		PaymentStatus: req.PaymentStatus,
		Notes:         req.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	if p.InvoiceDate.IsZero() {
		p.InvoiceDate = p.CreatedAt
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = "unpaid"
	}

	if err := e.store.InsertPurchase(ctx, &p); err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	reason := fmt.Sprintf("Purchase Invoice: %s", p.InvoiceNo)
	if p.InvoiceNo == "" {
		reason = fmt.Sprintf("Purchase Invoice: %s", p.ID)
	}

	receipt := &PurchaseReceipt{Purchase: p}
	var succeeded []LineOutcome

	for i, lr := range req.Lines {
		if err := e.applyPurchaseLine(ctx, &p, lr, reason, req.PerformedBy, receipt); err != nil {
			return nil, partialFailure(p.ID, succeeded, req.Lines, i, err)
		}
		succeeded = append(succeeded, LineOutcome{Index: i + 1, ItemID: lr.ItemID})
	}

	return receipt, nil
}

func (e *Engine) applyPurchaseLine(ctx context.Context, p *Purchase, lr PurchaseLineRequest, reason, performedBy string, receipt *PurchaseReceipt) error {
	if !lr.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ledger.ErrInvalidInput)
	}
	if lr.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price cannot be negative", ledger.ErrInvalidInput)
	}

	line := PurchaseLine{
		ID:         uuid.NewString(),
		PurchaseID: p.ID,
		ItemID:     lr.ItemID,
		Quantity:   lr.Quantity,
		Unit:       lr.Unit,
		UnitPrice:  lr.UnitPrice,
		LineTotal:  ledger.Amount{Value: lr.UnitPrice.Value.Mul(lr.Quantity.Value)},
	}
	if err := e.store.InsertPurchaseLine(ctx, &line); err != nil {
		return err
	}

	res, err := e.ApplyMovement(ctx, MovementRequest{
		RestaurantID: p.RestaurantID,
		ItemID:       lr.ItemID,
		Type:         MovementIn,
		Quantity:     lr.Quantity,
		Unit:         lr.Unit,
		Reason:       reason,
		ReferenceID:  p.ID,
		PerformedBy:  performedBy,
	})
	if err != nil {
		return err
	}

	if err := e.store.SetLastPurchasePrice(ctx, lr.ItemID, lr.UnitPrice); err != nil {
		return err
	}

	receipt.Lines = append(receipt.Lines, line)
	receipt.Movements = append(receipt.Movements, res.Movement)
	return nil
}

func partialFailure(purchaseID string, succeeded []LineOutcome, lines []PurchaseLineRequest, failedAt int, cause error) *PartialPurchaseError {
	failed := []LineOutcome{{Index: failedAt + 1, ItemID: lines[failedAt].ItemID, Error: cause.Error()}}
	for i := failedAt + 1; i < len(lines); i++ {
		failed = append(failed, LineOutcome{Index: i + 1, ItemID: lines[i].ItemID, Error: "not processed"})
	}
	return &PartialPurchaseError{
		PurchaseID: purchaseID,
		Succeeded:  succeeded,
		Failed:     failed,
		Cause:      cause,
	}
}

func purchaseTotal(lines []PurchaseLineRequest) ledger.Amount {
	total := ledger.Zero
	for _, l := range lines {
		total = total.Add(ledger.Amount{Value: l.UnitPrice.Value.Mul(l.Quantity.Value)})
	}
	return total
}

// Purchases returns purchase history, newest first.
func (e *Engine) Purchases(ctx context.Context, q PurchaseQuery) ([]Purchase, error) {
	return e.store.Purchases(ctx, q)
}
