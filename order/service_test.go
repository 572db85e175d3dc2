package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/order"
	"github.com/warp/pos-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testRestaurant = "rest-1"

func newTestService(t *testing.T) (*order.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := order.NewService(store, store)
	return svc, store
}

func seedMenuItem(t *testing.T, store *sqlite.Store, id, name string, full float64, half *float64) {
	m := &sqlite.MenuItem{
		ID:           id,
		RestaurantID: testRestaurant,
		Name:         name,
		PriceFull:    ledger.NewAmount(full),
		IsAvailable:  true,
	}
	if half != nil {
		h := ledger.NewAmount(*half)
		m.PriceHalf = &h
	}
	require.NoError(t, store.SaveMenuItem(context.Background(), m))
}

func amt(v float64) ledger.Amount { return ledger.NewAmount(v) }

func amtPtr(v float64) *ledger.Amount {
	a := ledger.NewAmount(v)
	return &a
}

func ptr(v float64) *float64 { return &v }

// =============================================================================
// CREATE + PRICING
// =============================================================================

func TestCreate_TotalMatchesLines(t *testing.T) {
	// GIVEN: A menu with a priced biryani
	// WHEN: An order for 2x full is created
	// THEN: Total equals 2x the full price and lines carry the snapshot

	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-biryani", "Chicken Biryani", 180, nil)

	o, lines, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines: []order.LineRequest{
			{ItemID: "item-biryani", Quantity: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(amt(360)), "got %s", o.TotalAmount)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].PriceAtTime.Equal(amt(180)))
	assert.True(t, o.TotalAmount.Equal(order.TotalOf(lines)))
}

func TestCreate_HalfPortionAndCustomLine(t *testing.T) {
	// GIVEN: A dal with a half price of 50, plus an off-menu extra
	// WHEN: One half dal and 2x custom "Extra Raita" at 20 are ordered
	// THEN: Total is 50 + 40 = 90

	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, ptr(50))

	o, lines, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines: []order.LineRequest{
			{ItemID: "item-dal", Quantity: 1, Portion: order.PortionHalf},
			{CustomName: "Extra Raita", Quantity: 2, Price: amtPtr(20)},
		},
	})
	require.NoError(t, err)

	assert.True(t, o.TotalAmount.Equal(amt(90)), "got %s", o.TotalAmount)
	assert.True(t, lines[0].PriceAtTime.Equal(amt(50)), "half price applies")
	assert.True(t, lines[1].PriceAtTime.Equal(amt(20)), "custom price applies")
}

func TestCreate_OverrideBeatsHalfPrice(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, ptr(50))

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines: []order.LineRequest{
			{ItemID: "item-dal", Quantity: 1, Portion: order.PortionHalf, OverridePrice: amtPtr(40)},
		},
	})
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(amt(40)))
}

func TestCreate_PriceSnapshotIsImmutable(t *testing.T) {
	// GIVEN: An order priced at today's menu
	// WHEN: The menu price changes afterwards
	// THEN: The stored order and its lines keep the old price

	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-biryani", "Chicken Biryani", 180, nil)

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-biryani", Quantity: 1}},
	})
	require.NoError(t, err)

	seedMenuItem(t, store, "item-biryani", "Chicken Biryani", 250, nil)

	got, lines, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(amt(180)))
	assert.True(t, lines[0].PriceAtTime.Equal(amt(180)))
}

func TestCreate_RejectsBadLines(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, nil)

	cases := []struct {
		name  string
		lines []order.LineRequest
	}{
		{"no lines", nil},
		{"zero quantity", []order.LineRequest{{ItemID: "item-dal", Quantity: 0}}},
		{"custom without price", []order.LineRequest{{CustomName: "Mystery", Quantity: 1}}},
		{"both catalog and custom", []order.LineRequest{{ItemID: "item-dal", CustomName: "Dal", Quantity: 1, Price: amtPtr(10)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Create(ctx, order.CreateRequest{
				RestaurantID: testRestaurant,
				Lines:        tc.lines,
			})
			assert.ErrorIs(t, err, ledger.ErrInvalidInput)
		})
	}
}

func TestCreate_UnknownItemIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Create(context.Background(), order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-ghost", Quantity: 1}},
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// REPLACE
// =============================================================================

func TestReplace_SwapsLinesAndTotal(t *testing.T) {
	// GIVEN: An order with one dal
	// WHEN: Its lines are replaced by 2x biryani
	// THEN: Old lines are gone, total matches the new lines only

	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, nil)
	seedMenuItem(t, store, "item-biryani", "Chicken Biryani", 180, nil)

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-dal", Quantity: 1}},
	})
	require.NoError(t, err)

	updated, lines, err := svc.Replace(ctx, o.ID,
		[]order.LineRequest{{ItemID: "item-biryani", Quantity: 2}}, "changed mind")
	require.NoError(t, err)

	assert.True(t, updated.TotalAmount.Equal(amt(360)), "got %s", updated.TotalAmount)
	require.Len(t, lines, 1)
	assert.Equal(t, "item-biryani", lines[0].ItemID)
	assert.Greater(t, updated.Version, o.Version)

	stored, storedLines, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, storedLines, 1)
	assert.True(t, stored.TotalAmount.Equal(order.TotalOf(storedLines)))
}

func TestReplace_BadLinesLeaveOrderIntact(t *testing.T) {
	// GIVEN: A stored order
	// WHEN: A replacement containing an unknown item is submitted
	// THEN: The call fails and the original lines survive untouched

	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, nil)

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-dal", Quantity: 1}},
	})
	require.NoError(t, err)

	_, _, err = svc.Replace(ctx, o.ID,
		[]order.LineRequest{{ItemID: "item-ghost", Quantity: 1}}, "")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	stored, lines, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Equal(t, "item-dal", lines[0].ItemID)
	assert.True(t, stored.TotalAmount.Equal(amt(90)))
}

func TestReplace_TerminalOrderRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, nil)

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-dal", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, o.ID, order.StatusCancelled, order.TransitionFields{})
	require.NoError(t, err)

	_, _, err = svc.Replace(ctx, o.ID,
		[]order.LineRequest{{ItemID: "item-dal", Quantity: 2}}, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestTransition_FullLifecycle(t *testing.T) {
	// GIVEN: A pending order
	// WHEN: It walks pending -> preparing -> ready -> completed
	// THEN: Each move succeeds and attaches its fields

	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, nil)

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-dal", Quantity: 1}},
	})
	require.NoError(t, err)

	o, err = svc.Transition(ctx, o.ID, order.StatusPreparing,
		order.TransitionFields{EstimatedPrepMinutes: 15})
	require.NoError(t, err)
	assert.Equal(t, 15, o.EstimatedPrepMinutes)

	o, err = svc.Transition(ctx, o.ID, order.StatusReady, order.TransitionFields{})
	require.NoError(t, err)

	o, err = svc.Transition(ctx, o.ID, order.StatusCompleted,
		order.TransitionFields{PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.Equal(t, "cash", o.PaymentMethod)
}

func TestTransition_IllegalMovesRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, nil)

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-dal", Quantity: 1}},
	})
	require.NoError(t, err)

	// pending -> completed skips the kitchen
	_, err = svc.Transition(ctx, o.ID, order.StatusCompleted, order.TransitionFields{})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	// completed is terminal
	_, err = svc.Transition(ctx, o.ID, order.StatusPreparing, order.TransitionFields{})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, o.ID, order.StatusReady, order.TransitionFields{})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, o.ID, order.StatusCompleted, order.TransitionFields{})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, o.ID, order.StatusPending, order.TransitionFields{})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestTransition_CancelIsIdempotent(t *testing.T) {
	// GIVEN: A cancelled order
	// WHEN: It is cancelled again
	// THEN: The second cancel is a clean no-op

	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, nil)

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-dal", Quantity: 1}},
	})
	require.NoError(t, err)

	first, err := svc.Transition(ctx, o.ID, order.StatusCancelled, order.TransitionFields{})
	require.NoError(t, err)

	second, err := svc.Transition(ctx, o.ID, order.StatusCancelled, order.TransitionFields{})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, second.Status)
	assert.Equal(t, first.Version, second.Version, "no-op must not rewrite the header")
}

// =============================================================================
// ADMIN
// =============================================================================

func TestDelete_RemovesOrderAndLines(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedMenuItem(t, store, "item-dal", "Dal Fry", 90, nil)

	o, _, err := svc.Create(ctx, order.CreateRequest{
		RestaurantID: testRestaurant,
		Lines:        []order.LineRequest{{ItemID: "item-dal", Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, o.ID))

	_, _, err = svc.Get(ctx, o.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	lines, err := store.GetLines(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
