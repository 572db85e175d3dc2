/*
Package khata implements the Credit Ledger Engine: running customer
credit accounts.

PURPOSE:
  A customer's current_due is the cached sum of an append-only
  transaction ledger: CREDIT increases what the customer owes, PAYMENT
  reduces it. The protocol mirrors the stock ledger - insert the
  immutable fact, then bump the cache with an atomic increment at the
  storage layer, with a reconciliation pass to recompute from history.

CRITICAL INVARIANTS:
  1. current_due == SUM(CREDIT amounts) - SUM(PAYMENT amounts) since
     account activation.
  2. Transactions are append-only facts. No update, no delete.
  3. The due update is an atomic increment, never read-then-write.
  4. credit_limit is advisory only: nothing here rejects a CREDIT that
     pushes the due past the limit. Enforcement is an open product
     question, not a silent fix.
*/
package khata

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/pos-engine/ledger"
)

// =============================================================================
// RECORDS
// =============================================================================

type TransactionType string

const (
	TxCredit  TransactionType = "CREDIT"  // adds to due
	TxPayment TransactionType = "PAYMENT" // reduces due
)

func (t TransactionType) Valid() bool {
	return t == TxCredit || t == TxPayment
}

// SignedDelta maps the transaction onto the due balance: +amount for
// CREDIT, -amount for PAYMENT. Amounts must be strictly positive.
func (t TransactionType) SignedDelta(amount ledger.Amount) (ledger.Amount, error) {
	if !amount.IsPositive() {
		return ledger.Zero, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidInput)
	}
	switch t {
	case TxCredit:
		return amount, nil
	case TxPayment:
		return amount.Neg(), nil
	default:
		return ledger.Zero, fmt.Errorf("%w: unknown transaction type %q", ledger.ErrInvalidInput, t)
	}
}

// Customer is a khata account. CurrentDue is the cached balance.
type Customer struct {
	ID            string
	RestaurantID  string
	Name          string
	Phone         string
	Email         string
	IsKhataActive bool
	CreditLimit   ledger.Amount
	CurrentDue    ledger.Amount
	Version       int64
	CreatedAt     time.Time
}

// Transaction is one immutable ledger fact.
type Transaction struct {
	ID            string
	RestaurantID  string
	CustomerID    string
	Type          TransactionType
	Amount        ledger.Amount
	ReferenceID   string // optional originating order
	PaymentMethod string
	Description   string
	CreatedAt     time.Time
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the persistence contract. AppendTransaction must insert the
// transaction row and apply delta to the customer's cached due as an
// atomic increment in one unit, returning the post-update due.
type Store interface {
	UpsertCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context, restaurantID string, khataOnly bool) ([]Customer, error)

	AppendTransaction(ctx context.Context, tx Transaction, delta ledger.Amount) (ledger.Amount, error)
	Transactions(ctx context.Context, customerID string) ([]Transaction, error)
	SumTransactions(ctx context.Context, customerID string) (ledger.Amount, error)
	SetDue(ctx context.Context, customerID string, due ledger.Amount) error
}

// Engine applies credit/payment transactions to customer accounts.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// SaveCustomer creates or updates a khata account. The store upserts on
// (restaurant, phone) so re-enabling khata for a known phone number
// updates the existing account instead of forking a second ledger.
func (e *Engine) SaveCustomer(ctx context.Context, c Customer) (*Customer, error) {
	if c.RestaurantID == "" || c.Name == "" {
		return nil, fmt.Errorf("%w: restaurant id and name are required", ledger.ErrInvalidInput)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := e.store.UpsertCustomer(ctx, &c); err != nil {
		return nil, fmt.Errorf("save customer: %w", err)
	}
	return &c, nil
}

// TransactionRequest is one requested credit or payment.
type TransactionRequest struct {
	RestaurantID  string
	CustomerID    string
	Type          TransactionType
	Amount        ledger.Amount
	ReferenceID   string
	PaymentMethod string
	Description   string
}

// TransactionResult carries the recorded fact and the post-update due.
type TransactionResult struct {
	Transaction Transaction
	NewDue      ledger.Amount
}

// RecordTransaction validates, writes the immutable transaction and
// atomically bumps the customer's cached due.
func (e *Engine) RecordTransaction(ctx context.Context, req TransactionRequest) (*TransactionResult, error) {
	delta, err := req.Type.SignedDelta(req.Amount)
	if err != nil {
		return nil, err
	}

	customer, err := e.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %s", ledger.ErrNotFound, req.CustomerID)
	}

	tx := Transaction{
		ID:            uuid.NewString(),
		RestaurantID:  req.RestaurantID,
		CustomerID:    req.CustomerID,
		Type:          req.Type,
		Amount:        req.Amount,
		ReferenceID:   req.ReferenceID,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		CreatedAt:     time.Now().UTC(),
	}

	newDue, err := e.store.AppendTransaction(ctx, tx, delta)
	if err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	return &TransactionResult{Transaction: tx, NewDue: newDue}, nil
}

// Ledger returns the customer's transaction history, newest first.
func (e *Engine) Ledger(ctx context.Context, customerID string) ([]Transaction, error) {
	customer, err := e.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %s", ledger.ErrNotFound, customerID)
	}
	return e.store.Transactions(ctx, customerID)
}

// Reconcile recomputes current_due from the full transaction history and
// corrects the cache when it has drifted.
func (e *Engine) Reconcile(ctx context.Context, customerID string) (*ledger.DriftReport, error) {
	customer, err := e.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %s", ledger.ErrNotFound, customerID)
	}

	computed, err := e.store.SumTransactions(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("reconcile customer %s: %w", customerID, err)
	}

	report := &ledger.DriftReport{
		EntityID: customerID,
		Cached:   customer.CurrentDue,
		Computed: computed,
	}
	if !report.InSync() {
		if err := e.store.SetDue(ctx, customerID, computed); err != nil {
			return report, fmt.Errorf("correct due for %s: %w", customerID, err)
		}
		report.Corrected = true
	}
	return report, nil
}
