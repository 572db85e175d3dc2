package khata_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pos-engine/khata"
	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testRestaurant = "rest-1"

func newTestEngine(t *testing.T) (*khata.Engine, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return khata.NewEngine(store), store
}

func seedCustomer(t *testing.T, e *khata.Engine, name, phone string) *khata.Customer {
	c, err := e.SaveCustomer(context.Background(), khata.Customer{
		RestaurantID:  testRestaurant,
		Name:          name,
		Phone:         phone,
		IsKhataActive: true,
	})
	require.NoError(t, err)
	return c
}

func amt(v float64) ledger.Amount { return ledger.NewAmount(v) }

// =============================================================================
// CUSTOMERS
// =============================================================================

func TestSaveCustomer_UpsertByPhonePreservesLedger(t *testing.T) {
	// GIVEN: A khata customer with a running due
	// WHEN: The same phone number is saved again under a different name
	// THEN: The existing account is updated in place, due intact

	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := seedCustomer(t, e, "Ravi Kumar", "9876543210")

	_, err := e.RecordTransaction(ctx, khata.TransactionRequest{
		RestaurantID: testRestaurant,
		CustomerID:   c.ID,
		Type:         khata.TxCredit,
		Amount:       amt(500),
	})
	require.NoError(t, err)

	updated, err := e.SaveCustomer(ctx, khata.Customer{
		RestaurantID:  testRestaurant,
		Name:          "Ravi K.",
		Phone:         "9876543210",
		IsKhataActive: true,
		CreditLimit:   amt(2000),
	})
	require.NoError(t, err)

	assert.Equal(t, c.ID, updated.ID, "same phone lands on the same account")
	assert.Equal(t, "Ravi K.", updated.Name)
	assert.True(t, updated.CurrentDue.Equal(amt(500)), "due survives the upsert")
}

func TestSaveCustomer_DistinctPhonesFork(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	a := seedCustomer(t, e, "Ravi", "9876543210")
	b := seedCustomer(t, e, "Sita", "9123456780")
	assert.NotEqual(t, a.ID, b.ID)

	customers, err := store.ListCustomers(ctx, testRestaurant, true)
	require.NoError(t, err)
	assert.Len(t, customers, 2)
}

func TestSaveCustomer_RequiresNameAndRestaurant(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.SaveCustomer(context.Background(), khata.Customer{Name: "No Restaurant"})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = e.SaveCustomer(context.Background(), khata.Customer{RestaurantID: testRestaurant})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestRecordTransaction_DueArithmetic(t *testing.T) {
	// GIVEN: A fresh account at zero
	// WHEN: 200 CREDIT then 80 PAYMENT are recorded
	// THEN: The due reads 120 and both facts are in the ledger

	e, store := newTestEngine(t)
	ctx := context.Background()
	c := seedCustomer(t, e, "Ravi", "9876543210")

	res, err := e.RecordTransaction(ctx, khata.TransactionRequest{
		RestaurantID: testRestaurant,
		CustomerID:   c.ID,
		Type:         khata.TxCredit,
		Amount:       amt(200),
		ReferenceID:  "order-1",
	})
	require.NoError(t, err)
	assert.True(t, res.NewDue.Equal(amt(200)))

	res, err = e.RecordTransaction(ctx, khata.TransactionRequest{
		RestaurantID:  testRestaurant,
		CustomerID:    c.ID,
		Type:          khata.TxPayment,
		Amount:        amt(80),
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	assert.True(t, res.NewDue.Equal(amt(120)), "got %s", res.NewDue)

	got, err := store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentDue.Equal(amt(120)))

	txs, err := e.Ledger(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestRecordTransaction_RejectsBadInput(t *testing.T) {
	e, _ := newTestEngine(t)
	c := seedCustomer(t, e, "Ravi", "9876543210")

	cases := []struct {
		name string
		req  khata.TransactionRequest
		want error
	}{
		{"zero amount", khata.TransactionRequest{
			RestaurantID: testRestaurant, CustomerID: c.ID,
			Type: khata.TxCredit, Amount: amt(0),
		}, ledger.ErrInvalidInput},
		{"negative amount", khata.TransactionRequest{
			RestaurantID: testRestaurant, CustomerID: c.ID,
			Type: khata.TxPayment, Amount: amt(-50),
		}, ledger.ErrInvalidInput},
		{"unknown type", khata.TransactionRequest{
			RestaurantID: testRestaurant, CustomerID: c.ID,
			Type: khata.TransactionType("REFUND"), Amount: amt(50),
		}, ledger.ErrInvalidInput},
		{"unknown customer", khata.TransactionRequest{
			RestaurantID: testRestaurant, CustomerID: "cust-ghost",
			Type: khata.TxCredit, Amount: amt(50),
		}, ledger.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.RecordTransaction(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRecordTransaction_OverpaymentGoesNegative(t *testing.T) {
	// A payment larger than the due leaves a negative balance (the shop
	// owes the customer); the engine records the fact rather than clamping.

	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := seedCustomer(t, e, "Ravi", "9876543210")

	_, err := e.RecordTransaction(ctx, khata.TransactionRequest{
		RestaurantID: testRestaurant,
		CustomerID:   c.ID,
		Type:         khata.TxCredit,
		Amount:       amt(100),
	})
	require.NoError(t, err)

	res, err := e.RecordTransaction(ctx, khata.TransactionRequest{
		RestaurantID: testRestaurant,
		CustomerID:   c.ID,
		Type:         khata.TxPayment,
		Amount:       amt(150),
	})
	require.NoError(t, err)
	assert.True(t, res.NewDue.Equal(amt(-50)), "got %s", res.NewDue)
}

func TestLedger_UnknownCustomer(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Ledger(context.Background(), "cust-ghost")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcile_RepairsDriftedDue(t *testing.T) {
	// GIVEN: An account whose cached due was corrupted behind the ledger
	// WHEN: Reconcile runs
	// THEN: The cache is rewritten to the transaction sum

	e, store := newTestEngine(t)
	ctx := context.Background()
	c := seedCustomer(t, e, "Ravi", "9876543210")

	_, err := e.RecordTransaction(ctx, khata.TransactionRequest{
		RestaurantID: testRestaurant,
		CustomerID:   c.ID,
		Type:         khata.TxCredit,
		Amount:       amt(300),
	})
	require.NoError(t, err)

	require.NoError(t, store.SetDue(ctx, c.ID, amt(9999)))

	report, err := e.Reconcile(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, report.Corrected)
	assert.True(t, report.Computed.Equal(amt(300)))

	got, err := store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentDue.Equal(amt(300)))
}

func TestReconcile_CleanAccountIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t)
	c := seedCustomer(t, e, "Ravi", "9876543210")

	report, err := e.Reconcile(context.Background(), c.ID)
	require.NoError(t, err)
	assert.False(t, report.Corrected)
	assert.True(t, report.InSync())
}
