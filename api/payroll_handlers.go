// payroll_handlers.go - staff, attendance, advance and payroll endpoints
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/payroll"
)

// SaveStaff creates or updates a staff member.
func (h *Handler) SaveStaff(w http.ResponseWriter, r *http.Request) {
	var req StaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.RestaurantID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id and name are required", nil)
		return
	}

	st := payroll.Staff{
		ID:           req.ID,
		RestaurantID: req.RestaurantID,
		Name:         req.Name,
		Role:         req.Role,
		Phone:        req.Phone,
		BaseSalary:   ledger.NewAmount(req.BaseSalary),
		SalaryType:   req.SalaryType,
		Status:       req.Status,
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.SalaryType == "" {
		st.SalaryType = "monthly"
	}
	if st.Status == "" {
		st.Status = "active"
	}
	if req.JoiningDate != "" {
		d, err := time.Parse("2006-01-02", req.JoiningDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid joining_date (use YYYY-MM-DD)", err)
			return
		}
		st.JoiningDate = d
	}

	if err := h.Store.SaveStaff(r.Context(), &st); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStaffDTO(st))
}

// ListStaff returns a restaurant's staff.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required", nil)
		return
	}

	members, err := h.Store.ListStaff(r.Context(), restaurantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]StaffDTO, len(members))
	for i, st := range members {
		dtos[i] = toStaffDTO(st)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MarkAttendance upserts one staff-day attendance record.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date (use YYYY-MM-DD)", err)
		return
	}

	status := payroll.AttendanceStatus(req.Status)
	switch status {
	case payroll.Present, payroll.Absent, payroll.HalfDay, payroll.Leave:
	default:
		writeError(w, http.StatusBadRequest, "invalid attendance status", nil)
		return
	}

	a := payroll.Attendance{
		ID:      uuid.NewString(),
		StaffID: chi.URLParam(r, "id"),
		Date:    date,
		Status:  status,
	}
	if err := h.Store.MarkAttendance(r.Context(), &a); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// RecordAdvance appends an issued or recovered salary advance.
func (h *Handler) RecordAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	adv, err := h.Payroll.RecordAdvance(r.Context(), chi.URLParam(r, "id"),
		payroll.AdvanceType(req.Type), ledger.NewAmount(req.Amount), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, adv)
}

// GetAdvanceBalance returns a staff member's advance summary.
func (h *Handler) GetAdvanceBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.Payroll.Balance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdvanceBalanceDTO(bal))
}

// GeneratePayroll computes or recomputes a (staff, month) payroll row.
func (h *Handler) GeneratePayroll(w http.ResponseWriter, r *http.Request) {
	var req GeneratePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := h.Payroll.Generate(r.Context(), req.StaffID, req.Month, req.Force)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayrollDTO(*p))
}

// ListPayroll returns a restaurant's payroll rows for a month.
func (h *Handler) ListPayroll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("restaurant_id") == "" || q.Get("month") == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id and month are required", nil)
		return
	}

	rows, err := h.Store.ListPayroll(r.Context(), q.Get("restaurant_id"), q.Get("month"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PayrollDTO, len(rows))
	for i, p := range rows {
		dtos[i] = toPayrollDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MarkPayrollPaid settles a payroll row.
func (h *Handler) MarkPayrollPaid(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payroll.MarkPaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTO(*p))
}
