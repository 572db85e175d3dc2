// khata_handlers.go - customer credit ledger endpoints
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/pos-engine/khata"
	"github.com/warp/pos-engine/ledger"
)

// SaveCustomer creates or updates a khata account.
func (h *Handler) SaveCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	c, err := h.Khata.SaveCustomer(r.Context(), khata.Customer{
		ID:            req.ID,
		RestaurantID:  req.RestaurantID,
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		IsKhataActive: req.IsKhataActive,
		CreditLimit:   ledger.NewAmount(req.CreditLimit),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(*c))
}

// ListCustomers returns a restaurant's customers. khata_only=true
// restricts to active credit accounts.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("restaurant_id") == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required", nil)
		return
	}

	customers, err := h.Store.ListCustomers(r.Context(), q.Get("restaurant_id"),
		q.Get("khata_only") == "true")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCustomer returns one customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "customer not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*c))
}

// RecordKhataTransaction applies a credit or payment and returns the
// fact with the post-update due.
func (h *Handler) RecordKhataTransaction(w http.ResponseWriter, r *http.Request) {
	var req KhataTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.Khata.RecordTransaction(r.Context(), khata.TransactionRequest{
		RestaurantID:  req.RestaurantID,
		CustomerID:    req.CustomerID,
		Type:          khata.TransactionType(req.Type),
		Amount:        ledger.NewAmount(req.Amount),
		ReferenceID:   req.ReferenceID,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, KhataTransactionResultDTO{
		Transaction: toKhataTransactionDTO(res.Transaction),
		NewDue:      res.NewDue.String(),
	})
}

// GetKhataLedger returns a customer's transaction history.
func (h *Handler) GetKhataLedger(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.Khata.Ledger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]KhataTransactionDTO, len(transactions))
	for i, t := range transactions {
		dtos[i] = toKhataTransactionDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReconcileCustomer recomputes a customer's due from the ledger.
func (h *Handler) ReconcileCustomer(w http.ResponseWriter, r *http.Request) {
	report, err := h.Khata.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDriftReportDTO(report))
}
