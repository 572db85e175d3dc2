package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/order"
	"github.com/warp/pos-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedOrder(t *testing.T, store *sqlite.Store) (*order.Order, []order.Line) {
	now := time.Now().UTC()
	o := &order.Order{
		ID:           uuid.NewString(),
		RestaurantID: "rest-1",
		Status:       order.StatusPending,
		Type:         order.TypeDineIn,
		TotalAmount:  ledger.NewAmount(180),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	lines := []order.Line{{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		CustomName:  "Chicken Biryani",
		Quantity:    1,
		Portion:     order.PortionFull,
		PriceAtTime: ledger.NewAmount(180),
	}}
	require.NoError(t, store.InsertOrder(context.Background(), o, lines))
	return o, lines
}

// =============================================================================
// OPTIMISTIC VERSIONING
// =============================================================================

func TestUpdateOrder_StaleVersionConflicts(t *testing.T) {
	// GIVEN: Two actors holding the same order snapshot
	// WHEN: Both write their header update
	// THEN: The second write loses with a concurrency conflict

	store := newTestStore(t)
	ctx := context.Background()
	o, _ := seedOrder(t, store)

	first := *o
	second := *o

	first.Status = order.StatusPreparing
	require.NoError(t, store.UpdateOrder(ctx, &first))
	assert.Equal(t, o.Version+1, first.Version)

	second.Status = order.StatusCancelled
	err := store.UpdateOrder(ctx, &second)
	assert.ErrorIs(t, err, ledger.ErrConcurrencyConflict)

	got, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, got.Status, "the losing write changed nothing")
}

func TestReplaceLines_StaleVersionLeavesLinesUntouched(t *testing.T) {
	// GIVEN: An order whose version has moved on
	// WHEN: A replace is attempted with the stale snapshot
	// THEN: It fails on the claim, before any line was deleted

	store := newTestStore(t)
	ctx := context.Background()
	o, _ := seedOrder(t, store)

	stale := *o

	moved := *o
	moved.Status = order.StatusPreparing
	require.NoError(t, store.UpdateOrder(ctx, &moved))

	stale.TotalAmount = ledger.NewAmount(90)
	err := store.ReplaceLines(ctx, &stale, []order.Line{{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		CustomName:  "Dal Fry",
		Quantity:    1,
		Portion:     order.PortionFull,
		PriceAtTime: ledger.NewAmount(90),
	}})
	assert.ErrorIs(t, err, ledger.ErrConcurrencyConflict)

	lines, err := store.GetLines(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Chicken Biryani", lines[0].CustomName)

	got, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(ledger.NewAmount(180)))
	assert.False(t, got.Replacing)
}

func TestReplaceLines_SuccessClearsReplacingFlag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	o, _ := seedOrder(t, store)

	o.TotalAmount = ledger.NewAmount(360)
	err := store.ReplaceLines(ctx, o, []order.Line{
		{
			ID: uuid.NewString(), OrderID: o.ID, CustomName: "Chicken Biryani",
			Quantity: 2, Portion: order.PortionFull, PriceAtTime: ledger.NewAmount(180),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), o.Version)

	got, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, got.Replacing)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.TotalAmount.Equal(ledger.NewAmount(360)))
}

// =============================================================================
// ROUND-TRIP FIDELITY
// =============================================================================

func TestOrders_FractionalAmountsSurviveStorage(t *testing.T) {
	// Prices with paise must come back exactly, not as float noise.

	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	o := &order.Order{
		ID:           uuid.NewString(),
		RestaurantID: "rest-1",
		Status:       order.StatusPending,
		Type:         order.TypeTakeaway,
		TotalAmount:  ledger.MustParseAmount("123.45"),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.InsertOrder(ctx, o, []order.Line{{
		ID: uuid.NewString(), OrderID: o.ID, CustomName: "Chai",
		Quantity: 3, Portion: order.PortionFull, PriceAtTime: ledger.MustParseAmount("41.15"),
	}}))

	got, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "123.45", got.TotalAmount.String())

	lines, err := store.GetLines(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "41.15", lines[0].PriceAtTime.String())
}

func TestListOrders_StatusFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, _ := seedOrder(t, store)
	b, _ := seedOrder(t, store)

	moved := *b
	moved.Status = order.StatusPreparing
	require.NoError(t, store.UpdateOrder(ctx, &moved))

	pending, err := store.ListOrders(ctx, "rest-1", order.StatusPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)

	all, err := store.ListOrders(ctx, "rest-1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
