/*
Package payroll implements the Payroll Aggregator: a read-mostly batch
computation that derives a monthly payout from attendance records, a
base-salary snapshot and outstanding advances.

PURPOSE:
  Payroll is not an append-only ledger but it shares the same shape:
  recompute from sources, cache the result. Generate is an idempotent
  upsert keyed by (staff, month); re-running it recomputes the
  attendance summary and final amount.

BASELINE POLICY (deliberately gap-preserving):
  - calculated_base = base_salary_snapshot for EVERY salary type.
    Pro-rating daily/hourly pay by attendance is an open product
    question; until its target formula is specified, the aggregator
    pays the full snapshot.
  - advance_deductions = 0. Advances are tracked (see advance.go) but
    not yet netted into payroll automatically.
  final_amount = calculated_base - advance_deductions.

PAID GUARD:
  A payroll already marked paid is settled money. Generate refuses to
  overwrite it unless the caller passes the explicit Force override.
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/pos-engine/ledger"
)

// ErrAlreadyPaid is returned when Generate would overwrite a settled
// payroll without the explicit override.
var ErrAlreadyPaid = errors.New("payroll already paid; regeneration requires explicit override")

// =============================================================================
// RECORDS
// =============================================================================

type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	HalfDay AttendanceStatus = "half-day"
	Leave   AttendanceStatus = "leave"
)

// Attendance is one staff-day record.
type Attendance struct {
	ID      string
	StaffID string
	Date    time.Time
	Status  AttendanceStatus
}

// Staff is the payroll-relevant view of a staff member. The staff
// directory itself is owned elsewhere; this package only reads it.
type Staff struct {
	ID           string
	RestaurantID string
	Name         string
	Role         string
	Phone        string
	BaseSalary   ledger.Amount
	SalaryType   string // monthly, daily, hourly
	Status       string
	JoiningDate  time.Time
}

// AttendanceSummary counts a month's records by status.
type AttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	HalfDay int `json:"half_day"`
	Leave   int `json:"leave"`
}

type PayrollStatus string

const (
	StatusPending PayrollStatus = "pending"
	StatusPaid    PayrollStatus = "paid"
)

// Payroll is one (staff, month) payout row.
type Payroll struct {
	ID                 string
	StaffID            string
	Month              string // YYYY-MM
	BaseSalarySnapshot ledger.Amount
	Attendance         AttendanceSummary
	AdvanceDeductions  ledger.Amount
	FinalAmount        ledger.Amount
	Status             PayrollStatus
	PaidAt             *time.Time
	GeneratedAt        time.Time
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

type Store interface {
	GetStaff(ctx context.Context, id string) (*Staff, error)
	AttendanceInRange(ctx context.Context, staffID string, from, to time.Time) ([]Attendance, error)

	GetPayroll(ctx context.Context, id string) (*Payroll, error)
	GetPayrollForMonth(ctx context.Context, staffID, month string) (*Payroll, error)
	UpsertPayroll(ctx context.Context, p *Payroll) error
	ListPayroll(ctx context.Context, restaurantID, month string) ([]Payroll, error)

	InsertAdvance(ctx context.Context, a *Advance) error
	AdvancesForStaff(ctx context.Context, staffID string) ([]Advance, error)
}

// Aggregator derives and caches monthly payouts.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// =============================================================================
// GENERATE
// =============================================================================

// MonthRange converts a YYYY-MM month key into its [first, last] day
// bounds (UTC, inclusive).
func MonthRange(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month must be YYYY-MM", ledger.ErrInvalidInput)
	}
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end, nil
}

// Generate recomputes the (staff, month) payroll from attendance and the
// staff's current base salary, and upserts the cached row. A paid row is
// only overwritten when force is set.
func (a *Aggregator) Generate(ctx context.Context, staffID, month string, force bool) (*Payroll, error) {
	from, to, err := MonthRange(month)
	if err != nil {
		return nil, err
	}

	staff, err := a.store.GetStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, fmt.Errorf("%w: staff %s", ledger.ErrNotFound, staffID)
	}

	existing, err := a.store.GetPayrollForMonth(ctx, staffID, month)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == StatusPaid && !force {
		return nil, fmt.Errorf("%s %s: %w", staffID, month, ErrAlreadyPaid)
	}

	records, err := a.store.AttendanceInRange(ctx, staffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch attendance: %w", err)
	}
	summary := Summarize(records)

	// Baseline: full snapshot regardless of salary type or attendance,
	// and no automatic advance netting. See the package doc.
	calculatedBase := staff.BaseSalary
	deductions := ledger.Zero

	p := &Payroll{
		ID:                 uuid.NewString(),
		StaffID:            staffID,
		Month:              month,
		BaseSalarySnapshot: staff.BaseSalary,
		Attendance:         summary,
		AdvanceDeductions:  deductions,
		FinalAmount:        calculatedBase.Sub(deductions),
		Status:             StatusPending,
		GeneratedAt:        time.Now().UTC(),
	}
	if existing != nil {
		p.ID = existing.ID
		p.Status = existing.Status // a forced regenerate keeps paid status visible
		p.PaidAt = existing.PaidAt
	}

	if err := a.store.UpsertPayroll(ctx, p); err != nil {
		return nil, fmt.Errorf("save payroll: %w", err)
	}
	return p, nil
}

// Summarize counts attendance records by status.
func Summarize(records []Attendance) AttendanceSummary {
	var s AttendanceSummary
	for _, r := range records {
		switch r.Status {
		case Present:
			s.Present++
		case Absent:
			s.Absent++
		case HalfDay:
			s.HalfDay++
		case Leave:
			s.Leave++
		}
	}
	return s
}

// =============================================================================
// MARK PAID
// =============================================================================

// MarkPaid settles a payroll: pending -> paid, terminal for the normal
// flow (there is no un-pay).
func (a *Aggregator) MarkPaid(ctx context.Context, payrollID string) (*Payroll, error) {
	p, err := a.store.GetPayroll(ctx, payrollID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: payroll %s", ledger.ErrNotFound, payrollID)
	}
	if p.Status == StatusPaid {
		return p, nil // already settled; idempotent
	}

	now := time.Now().UTC()
	p.Status = StatusPaid
	p.PaidAt = &now
	if err := a.store.UpsertPayroll(ctx, p); err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	return p, nil
}
