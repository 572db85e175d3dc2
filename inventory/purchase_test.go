package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pos-engine/inventory"
	"github.com/warp/pos-engine/ledger"
)

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestRecordPurchase_AppliesEveryLine(t *testing.T) {
	// GIVEN: Two stocked items and a two-line invoice
	// WHEN: The purchase is recorded
	// THEN: Header total, line rows, IN movements and last prices all land

	e, store := newTestEngine(t)
	ctx := context.Background()
	rice := seedItem(t, e, "Basmati Rice", 10)
	oil := seedItem(t, e, "Cooking Oil", 5)

	receipt, err := e.RecordPurchase(ctx, inventory.PurchaseRequest{
		RestaurantID: testRestaurant,
		VendorID:     "vendor-1",
		InvoiceNo:    "INV-042",
		Lines: []inventory.PurchaseLineRequest{
			{ItemID: rice.ID, Quantity: amt(20), Unit: "kg", UnitPrice: amt(80)},
			{ItemID: oil.ID, Quantity: amt(10), Unit: "l", UnitPrice: amt(150)},
		},
	})
	require.NoError(t, err)

	// 20x80 + 10x150 = 3100
	assert.True(t, receipt.Purchase.TotalAmount.Equal(amt(3100)), "got %s", receipt.Purchase.TotalAmount)
	require.Len(t, receipt.Lines, 2)
	require.Len(t, receipt.Movements, 2)

	for _, m := range receipt.Movements {
		assert.Equal(t, inventory.MovementIn, m.Type)
		assert.Equal(t, receipt.Purchase.ID, m.ReferenceID)
		assert.Equal(t, "Purchase Invoice: INV-042", m.Reason)
	}

	gotRice, err := store.GetItem(ctx, rice.ID)
	require.NoError(t, err)
	assert.True(t, gotRice.CurrentStock.Equal(amt(30)))
	assert.True(t, gotRice.LastPurchasePrice.Equal(amt(80)))

	gotOil, err := store.GetItem(ctx, oil.ID)
	require.NoError(t, err)
	assert.True(t, gotOil.CurrentStock.Equal(amt(15)))
	assert.True(t, gotOil.LastPurchasePrice.Equal(amt(150)))

	lines, err := store.PurchaseLines(ctx, receipt.Purchase.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	purchases, err := e.Purchases(ctx, inventory.PurchaseQuery{RestaurantID: testRestaurant})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "INV-042", purchases[0].InvoiceNo)
}

func TestRecordPurchase_RejectsEmptyInvoice(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.RecordPurchase(context.Background(), inventory.PurchaseRequest{
		RestaurantID: testRestaurant,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

// =============================================================================
// PARTIAL FAILURE - fail forward, report both sides
// =============================================================================

func TestRecordPurchase_PartialFailureReportsBothSides(t *testing.T) {
	// GIVEN: A three-line invoice whose second line names an unknown item
	// WHEN: The purchase is recorded
	// THEN: Line 1 is fully applied, lines 2 and 3 are reported failed,
	//       and nothing is rolled back

	e, store := newTestEngine(t)
	ctx := context.Background()
	rice := seedItem(t, e, "Basmati Rice", 10)
	oil := seedItem(t, e, "Cooking Oil", 5)

	_, err := e.RecordPurchase(ctx, inventory.PurchaseRequest{
		RestaurantID: testRestaurant,
		InvoiceNo:    "INV-043",
		Lines: []inventory.PurchaseLineRequest{
			{ItemID: rice.ID, Quantity: amt(20), UnitPrice: amt(80)},
			{ItemID: "item-ghost", Quantity: amt(5), UnitPrice: amt(10)},
			{ItemID: oil.ID, Quantity: amt(10), UnitPrice: amt(150)},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrPartialWrite)

	var partial *inventory.PartialPurchaseError
	require.ErrorAs(t, err, &partial)

	require.Len(t, partial.Succeeded, 1)
	assert.Equal(t, 1, partial.Succeeded[0].Index)
	assert.Equal(t, rice.ID, partial.Succeeded[0].ItemID)

	require.Len(t, partial.Failed, 2)
	assert.Equal(t, 2, partial.Failed[0].Index)
	assert.NotEmpty(t, partial.Failed[0].Error)
	assert.Equal(t, 3, partial.Failed[1].Index)
	assert.Equal(t, "not processed", partial.Failed[1].Error)

	// Line 1 stayed applied: rice moved, oil never did.
	gotRice, err := store.GetItem(ctx, rice.ID)
	require.NoError(t, err)
	assert.True(t, gotRice.CurrentStock.Equal(amt(30)))

	gotOil, err := store.GetItem(ctx, oil.ID)
	require.NoError(t, err)
	assert.True(t, gotOil.CurrentStock.Equal(amt(5)))
	assert.True(t, gotOil.LastPurchasePrice.IsZero())

	// The header survives for inspection.
	purchases, err := e.Purchases(ctx, inventory.PurchaseQuery{RestaurantID: testRestaurant})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, partial.PurchaseID, purchases[0].ID)

	movements, err := e.Movements(ctx, inventory.MovementQuery{
		RestaurantID: testRestaurant,
		Type:         inventory.MovementIn,
	})
	require.NoError(t, err)
	assert.Len(t, movements, 1, "only the succeeded line produced a movement")
}

func TestRecordPurchase_FirstLineFailureAppliesNothing(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	rice := seedItem(t, e, "Basmati Rice", 10)

	_, err := e.RecordPurchase(ctx, inventory.PurchaseRequest{
		RestaurantID: testRestaurant,
		Lines: []inventory.PurchaseLineRequest{
			{ItemID: rice.ID, Quantity: amt(0), UnitPrice: amt(80)},
			{ItemID: rice.ID, Quantity: amt(5), UnitPrice: amt(80)},
		},
	})
	var partial *inventory.PartialPurchaseError
	require.ErrorAs(t, err, &partial)
	assert.Empty(t, partial.Succeeded)
	assert.Len(t, partial.Failed, 2)

	got, err := store.GetItem(ctx, rice.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.Equal(amt(10)), "no line applied")
}
