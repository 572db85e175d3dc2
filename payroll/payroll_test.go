package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/payroll"
	"github.com/warp/pos-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testRestaurant = "rest-1"

func newTestAggregator(t *testing.T) (*payroll.Aggregator, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return payroll.NewAggregator(store), store
}

func seedStaff(t *testing.T, store *sqlite.Store, name string, baseSalary float64) *payroll.Staff {
	st := &payroll.Staff{
		ID:           uuid.NewString(),
		RestaurantID: testRestaurant,
		Name:         name,
		Role:         "cook",
		BaseSalary:   ledger.NewAmount(baseSalary),
		SalaryType:   "monthly",
		Status:       "active",
		JoiningDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveStaff(context.Background(), st))
	return st
}

func markDay(t *testing.T, store *sqlite.Store, staffID string, day time.Time, status payroll.AttendanceStatus) {
	require.NoError(t, store.MarkAttendance(context.Background(), &payroll.Attendance{
		ID:      uuid.NewString(),
		StaffID: staffID,
		Date:    day,
		Status:  status,
	}))
}

func amt(v float64) ledger.Amount { return ledger.NewAmount(v) }

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_BaselineFormula(t *testing.T) {
	// GIVEN: A monthly staff member on 30000 with mixed attendance
	// WHEN: March payroll is generated
	// THEN: Final amount is the full snapshot with zero deductions, and
	//       the attendance summary reflects the month's records

	agg, store := newTestAggregator(t)
	ctx := context.Background()
	st := seedStaff(t, store, "Arjun", 30000)

	markDay(t, store, st.ID, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), payroll.Present)
	markDay(t, store, st.ID, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), payroll.Present)
	markDay(t, store, st.ID, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), payroll.Absent)
	markDay(t, store, st.ID, time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC), payroll.HalfDay)
	markDay(t, store, st.ID, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), payroll.Leave)
	// Outside the month; must not be counted.
	markDay(t, store, st.ID, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), payroll.Present)

	p, err := agg.Generate(ctx, st.ID, "2025-03", false)
	require.NoError(t, err)

	assert.True(t, p.BaseSalarySnapshot.Equal(amt(30000)))
	assert.True(t, p.AdvanceDeductions.IsZero())
	assert.True(t, p.FinalAmount.Equal(amt(30000)))
	assert.Equal(t, payroll.StatusPending, p.Status)
	assert.Equal(t, payroll.AttendanceSummary{Present: 2, Absent: 1, HalfDay: 1, Leave: 1}, p.Attendance)
}

func TestGenerate_RegenerateKeepsIdentity(t *testing.T) {
	// GIVEN: An existing pending payroll and a raised salary
	// WHEN: The month is regenerated
	// THEN: The same row is recomputed with the new snapshot

	agg, store := newTestAggregator(t)
	ctx := context.Background()
	st := seedStaff(t, store, "Arjun", 30000)

	first, err := agg.Generate(ctx, st.ID, "2025-03", false)
	require.NoError(t, err)

	st.BaseSalary = amt(32000)
	require.NoError(t, store.SaveStaff(ctx, st))

	second, err := agg.Generate(ctx, st.ID, "2025-03", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "upsert keyed by (staff, month)")
	assert.True(t, second.FinalAmount.Equal(amt(32000)))

	rows, err := store.ListPayroll(ctx, testRestaurant, "2025-03")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestGenerate_PaidGuard(t *testing.T) {
	// GIVEN: A payroll that has been marked paid
	// WHEN: The month is regenerated without and with force
	// THEN: The plain call fails; force recomputes but keeps paid status

	agg, store := newTestAggregator(t)
	ctx := context.Background()
	st := seedStaff(t, store, "Arjun", 30000)

	p, err := agg.Generate(ctx, st.ID, "2025-03", false)
	require.NoError(t, err)

	paid, err := agg.MarkPaid(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, payroll.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = agg.Generate(ctx, st.ID, "2025-03", false)
	assert.ErrorIs(t, err, payroll.ErrAlreadyPaid)

	forced, err := agg.Generate(ctx, st.ID, "2025-03", true)
	require.NoError(t, err)
	assert.Equal(t, p.ID, forced.ID)
	assert.Equal(t, payroll.StatusPaid, forced.Status, "forced regenerate keeps settled status")
	assert.NotNil(t, forced.PaidAt)
}

func TestGenerate_Validation(t *testing.T) {
	agg, store := newTestAggregator(t)
	st := seedStaff(t, store, "Arjun", 30000)

	_, err := agg.Generate(context.Background(), st.ID, "March 2025", false)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = agg.Generate(context.Background(), "staff-ghost", "2025-03", false)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestMarkPaid_IsIdempotent(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	st := seedStaff(t, store, "Arjun", 30000)

	p, err := agg.Generate(ctx, st.ID, "2025-03", false)
	require.NoError(t, err)

	first, err := agg.MarkPaid(ctx, p.ID)
	require.NoError(t, err)

	second, err := agg.MarkPaid(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, second.PaidAt)
	assert.WithinDuration(t, *first.PaidAt, *second.PaidAt, time.Second, "second settle is a no-op")
}

func TestMarkAttendance_SameDayOverwrites(t *testing.T) {
	// Correcting a day's attendance replaces the record instead of
	// double-counting it.

	agg, store := newTestAggregator(t)
	ctx := context.Background()
	st := seedStaff(t, store, "Arjun", 30000)

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	markDay(t, store, st.ID, day, payroll.Absent)
	markDay(t, store, st.ID, day, payroll.Present)

	p, err := agg.Generate(ctx, st.ID, "2025-03", false)
	require.NoError(t, err)
	assert.Equal(t, payroll.AttendanceSummary{Present: 1}, p.Attendance)
}

// =============================================================================
// ADVANCES
// =============================================================================

func TestAdvances_BalanceArithmetic(t *testing.T) {
	// GIVEN: 5000 issued and 2000 recovered
	// THEN: Outstanding reads 3000

	agg, store := newTestAggregator(t)
	ctx := context.Background()
	st := seedStaff(t, store, "Arjun", 30000)

	_, err := agg.RecordAdvance(ctx, st.ID, payroll.AdvanceIssued, amt(5000), "festival advance")
	require.NoError(t, err)
	_, err = agg.RecordAdvance(ctx, st.ID, payroll.AdvanceRecovered, amt(2000), "")
	require.NoError(t, err)

	bal, err := agg.Balance(ctx, st.ID)
	require.NoError(t, err)
	assert.True(t, bal.TotalIssued.Equal(amt(5000)))
	assert.True(t, bal.TotalRecovered.Equal(amt(2000)))
	assert.True(t, bal.Outstanding.Equal(amt(3000)))
}

func TestAdvances_OverRecoveryRejected(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	st := seedStaff(t, store, "Arjun", 30000)

	_, err := agg.RecordAdvance(ctx, st.ID, payroll.AdvanceIssued, amt(1000), "")
	require.NoError(t, err)

	_, err = agg.RecordAdvance(ctx, st.ID, payroll.AdvanceRecovered, amt(1500), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	bal, err := agg.Balance(ctx, st.ID)
	require.NoError(t, err)
	assert.True(t, bal.Outstanding.Equal(amt(1000)), "rejected recovery left no trace")
}

func TestAdvances_Validation(t *testing.T) {
	agg, store := newTestAggregator(t)
	st := seedStaff(t, store, "Arjun", 30000)

	_, err := agg.RecordAdvance(context.Background(), st.ID, payroll.AdvanceType("gift"), amt(100), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = agg.RecordAdvance(context.Background(), st.ID, payroll.AdvanceIssued, amt(0), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = agg.RecordAdvance(context.Background(), "staff-ghost", payroll.AdvanceIssued, amt(100), "")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
