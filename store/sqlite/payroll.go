/*
payroll.go - payroll.Store implementation, plus staff and attendance
admin storage

The payroll table is a cache keyed UNIQUE(staff_id, month); UpsertPayroll
rewrites the whole row. The paid guard lives in the aggregator, not here.
Attendance upserts on (staff_id, date) so re-marking a day replaces the
earlier status instead of double-counting it.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/pos-engine/payroll"
)

// =============================================================================
// STAFF
// =============================================================================

// SaveStaff inserts or updates a staff member.
func (s *Store) SaveStaff(ctx context.Context, st *payroll.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO staff
		(id, restaurant_id, name, role, phone, base_salary, salary_type, status, joining_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			phone = excluded.phone,
			base_salary = excluded.base_salary,
			salary_type = excluded.salary_type,
			status = excluded.status,
			joining_date = excluded.joining_date
	`

	var joiningDate *string
	if !st.JoiningDate.IsZero() {
		d := st.JoiningDate.Format("2006-01-02")
		joiningDate = &d
	}

	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.RestaurantID, st.Name, nullString(st.Role), nullString(st.Phone),
		toFixed(st.BaseSalary), st.SalaryType, st.Status, joiningDate,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("save staff", err)
	}
	return nil
}

// GetStaff returns a staff member, or nil when it does not exist.
func (s *Store) GetStaff(ctx context.Context, id string) (*payroll.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		st          payroll.Staff
		role        sql.NullString
		phone       sql.NullString
		baseSalary  int64
		joiningDate sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, name, role, phone, base_salary, salary_type, status, joining_date
		FROM staff WHERE id = ?`, id,
	).Scan(&st.ID, &st.RestaurantID, &st.Name, &role, &phone, &baseSalary, &st.SalaryType, &st.Status, &joiningDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get staff", err)
	}

	st.Role = role.String
	st.Phone = phone.String
	st.BaseSalary = fromFixed(baseSalary)
	if joiningDate.Valid {
		st.JoiningDate, _ = time.Parse("2006-01-02", joiningDate.String)
	}
	return &st, nil
}

// ListStaff returns a restaurant's staff, by name.
func (s *Store) ListStaff(ctx context.Context, restaurantID string) ([]payroll.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, role, phone, base_salary, salary_type, status, joining_date
		FROM staff WHERE restaurant_id = ? ORDER BY name`, restaurantID)
	if err != nil {
		return nil, storeErr("list staff", err)
	}
	defer rows.Close()

	var members []payroll.Staff
	for rows.Next() {
		var (
			st          payroll.Staff
			role        sql.NullString
			phone       sql.NullString
			baseSalary  int64
			joiningDate sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.RestaurantID, &st.Name, &role, &phone, &baseSalary,
			&st.SalaryType, &st.Status, &joiningDate); err != nil {
			return nil, storeErr("scan staff", err)
		}
		st.Role = role.String
		st.Phone = phone.String
		st.BaseSalary = fromFixed(baseSalary)
		if joiningDate.Valid {
			st.JoiningDate, _ = time.Parse("2006-01-02", joiningDate.String)
		}
		members = append(members, st)
	}
	return members, rows.Err()
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// MarkAttendance upserts one staff-day record.
func (s *Store) MarkAttendance(ctx context.Context, a *payroll.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO attendance (id, staff_id, date, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(staff_id, date) DO UPDATE SET
			status = excluded.status
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.StaffID, a.Date.Format("2006-01-02"), a.Status,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("mark attendance", err)
	}
	return nil
}

// AttendanceInRange returns a staff member's records between from and to
// inclusive.
func (s *Store) AttendanceInRange(ctx context.Context, staffID string, from, to time.Time) ([]payroll.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, staff_id, date, status
		FROM attendance
		WHERE staff_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		staffID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, storeErr("list attendance", err)
	}
	defer rows.Close()

	var records []payroll.Attendance
	for rows.Next() {
		var (
			a    payroll.Attendance
			date string
		)
		if err := rows.Scan(&a.ID, &a.StaffID, &date, &a.Status); err != nil {
			return nil, storeErr("scan attendance", err)
		}
		a.Date, _ = time.Parse("2006-01-02", date)
		records = append(records, a)
	}
	return records, rows.Err()
}

// =============================================================================
// PAYROLL CACHE
// =============================================================================

// UpsertPayroll rewrites the (staff, month) payroll row.
func (s *Store) UpsertPayroll(ctx context.Context, p *payroll.Payroll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paidAt *string
	if p.PaidAt != nil {
		t := p.PaidAt.Format(time.RFC3339)
		paidAt = &t
	}

	query := `
		INSERT INTO payroll
		(id, staff_id, month, base_salary_snapshot, present_days, absent_days, half_days, leave_days,
		 advance_deductions, final_amount, status, paid_at, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(staff_id, month) DO UPDATE SET
			base_salary_snapshot = excluded.base_salary_snapshot,
			present_days = excluded.present_days,
			absent_days = excluded.absent_days,
			half_days = excluded.half_days,
			leave_days = excluded.leave_days,
			advance_deductions = excluded.advance_deductions,
			final_amount = excluded.final_amount,
			status = excluded.status,
			paid_at = excluded.paid_at,
			generated_at = excluded.generated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.StaffID, p.Month, toFixed(p.BaseSalarySnapshot),
		p.Attendance.Present, p.Attendance.Absent, p.Attendance.HalfDay, p.Attendance.Leave,
		toFixed(p.AdvanceDeductions), toFixed(p.FinalAmount), p.Status, paidAt,
		p.GeneratedAt.Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("upsert payroll", err)
	}
	return nil
}

// GetPayroll returns a payroll row by id, or nil when it does not exist.
func (s *Store) GetPayroll(ctx context.Context, id string) (*payroll.Payroll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanOnePayroll(s.db.QueryRowContext(ctx, payrollSelect+" WHERE id = ?", id))
}

// GetPayrollForMonth returns the (staff, month) row, or nil.
func (s *Store) GetPayrollForMonth(ctx context.Context, staffID, month string) (*payroll.Payroll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanOnePayroll(s.db.QueryRowContext(ctx,
		payrollSelect+" WHERE staff_id = ? AND month = ?", staffID, month))
}

const payrollSelect = `
	SELECT id, staff_id, month, base_salary_snapshot, present_days, absent_days, half_days, leave_days,
	       advance_deductions, final_amount, status, paid_at, generated_at
	FROM payroll`

func (s *Store) scanOnePayroll(row *sql.Row) (*payroll.Payroll, error) {
	var (
		p           payroll.Payroll
		snapshot    int64
		deductions  int64
		finalAmount int64
		paidAt      sql.NullString
		generatedAt string
	)

	err := row.Scan(&p.ID, &p.StaffID, &p.Month, &snapshot,
		&p.Attendance.Present, &p.Attendance.Absent, &p.Attendance.HalfDay, &p.Attendance.Leave,
		&deductions, &finalAmount, &p.Status, &paidAt, &generatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get payroll", err)
	}

	p.BaseSalarySnapshot = fromFixed(snapshot)
	p.AdvanceDeductions = fromFixed(deductions)
	p.FinalAmount = fromFixed(finalAmount)
	if paidAt.Valid {
		t := parseTime(paidAt.String)
		p.PaidAt = &t
	}
	p.GeneratedAt = parseTime(generatedAt)
	return &p, nil
}

// ListPayroll returns a restaurant's payroll rows for a month.
func (s *Store) ListPayroll(ctx context.Context, restaurantID, month string) ([]payroll.Payroll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.staff_id, p.month, p.base_salary_snapshot, p.present_days, p.absent_days,
		       p.half_days, p.leave_days, p.advance_deductions, p.final_amount, p.status, p.paid_at,
		       p.generated_at
		FROM payroll p
		JOIN staff s ON s.id = p.staff_id
		WHERE s.restaurant_id = ? AND p.month = ?
		ORDER BY s.name`, restaurantID, month)
	if err != nil {
		return nil, storeErr("list payroll", err)
	}
	defer rows.Close()

	var results []payroll.Payroll
	for rows.Next() {
		var (
			p           payroll.Payroll
			snapshot    int64
			deductions  int64
			finalAmount int64
			paidAt      sql.NullString
			generatedAt string
		)
		if err := rows.Scan(&p.ID, &p.StaffID, &p.Month, &snapshot,
			&p.Attendance.Present, &p.Attendance.Absent, &p.Attendance.HalfDay, &p.Attendance.Leave,
			&deductions, &finalAmount, &p.Status, &paidAt, &generatedAt); err != nil {
			return nil, storeErr("scan payroll", err)
		}
		p.BaseSalarySnapshot = fromFixed(snapshot)
		p.AdvanceDeductions = fromFixed(deductions)
		p.FinalAmount = fromFixed(finalAmount)
		if paidAt.Valid {
			t := parseTime(paidAt.String)
			p.PaidAt = &t
		}
		p.GeneratedAt = parseTime(generatedAt)
		results = append(results, p)
	}
	return results, rows.Err()
}

// =============================================================================
// ADVANCES
// =============================================================================

// InsertAdvance appends an advance fact.
func (s *Store) InsertAdvance(ctx context.Context, a *payroll.Advance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO advances (id, staff_id, advance_type, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.StaffID, a.Type, toFixed(a.Amount), nullString(a.Note),
		a.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("insert advance", err)
	}
	return nil
}

// AdvancesForStaff returns a staff member's advance history, oldest
// first.
func (s *Store) AdvancesForStaff(ctx context.Context, staffID string) ([]payroll.Advance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, staff_id, advance_type, amount, note, created_at
		FROM advances WHERE staff_id = ? ORDER BY created_at`, staffID)
	if err != nil {
		return nil, storeErr("list advances", err)
	}
	defer rows.Close()

	var advances []payroll.Advance
	for rows.Next() {
		var (
			a         payroll.Advance
			amount    int64
			note      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.StaffID, &a.Type, &amount, &note, &createdAt); err != nil {
			return nil, storeErr("scan advance", err)
		}
		a.Amount = fromFixed(amount)
		a.Note = note.String
		a.CreatedAt = parseTime(createdAt)
		advances = append(advances, a)
	}
	return advances, rows.Err()
}
