// inventory_handlers.go - stock ledger and purchase endpoints
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/pos-engine/inventory"
	"github.com/warp/pos-engine/ledger"
)

// CreateInventoryItem registers an item, recording any opening stock as
// an opening movement.
func (h *Handler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req InventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	item, err := h.Inventory.CreateItem(r.Context(), inventory.Item{
		RestaurantID:  req.RestaurantID,
		Name:          req.Name,
		Unit:          req.Unit,
		CurrentStock:  ledger.NewAmount(req.OpeningStock),
		MinStockLevel: ledger.NewAmount(req.MinStockLevel),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryItemDTO(*item))
}

// ListInventoryItems returns a restaurant's inventory.
func (h *Handler) ListInventoryItems(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required", nil)
		return
	}

	items, err := h.Store.ListItems(r.Context(), restaurantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]InventoryItemDTO, len(items))
	for i, it := range items {
		dtos[i] = toInventoryItemDTO(it)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInventoryItem returns one item.
func (h *Handler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "inventory item not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryItemDTO(*item))
}

// ListLowStockItems returns items at or below their alert threshold.
func (h *Handler) ListLowStockItems(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required", nil)
		return
	}

	items, err := h.Inventory.LowStockItems(r.Context(), restaurantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]InventoryItemDTO, len(items))
	for i, it := range items {
		dtos[i] = toInventoryItemDTO(it)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApplyMovement records one stock movement and returns the fact with
// the post-update balance.
func (h *Handler) ApplyMovement(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.Inventory.ApplyMovement(r.Context(), inventory.MovementRequest{
		RestaurantID: req.RestaurantID,
		ItemID:       req.ItemID,
		Type:         inventory.MovementType(req.Type),
		Quantity:     ledger.NewAmount(req.Quantity),
		Unit:         req.Unit,
		Reason:       req.Reason,
		ReferenceID:  req.ReferenceID,
		PerformedBy:  req.PerformedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MovementResultDTO{
		Movement: toMovementDTO(res.Movement),
		NewStock: res.NewStock.String(),
	})
}

// ListMovements returns movement history.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("restaurant_id") == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required", nil)
		return
	}

	movements, err := h.Inventory.Movements(r.Context(), inventory.MovementQuery{
		RestaurantID: q.Get("restaurant_id"),
		ItemID:       q.Get("item_id"),
		Type:         inventory.MovementType(q.Get("movement_type")),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]MovementDTO, len(movements))
	for i, m := range movements {
		dtos[i] = toMovementDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReconcileItem recomputes an item's stock from its ledger.
func (h *Handler) ReconcileItem(w http.ResponseWriter, r *http.Request) {
	report, err := h.Inventory.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDriftReportDTO(report))
}

// RecordPurchase applies a full purchase invoice. A mid-invoice failure
// returns the structured partial-state body.
func (h *Handler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var invoiceDate time.Time
	if req.InvoiceDate != "" {
		var err error
		invoiceDate, err = time.Parse("2006-01-02", req.InvoiceDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid invoice_date (use YYYY-MM-DD)", err)
			return
		}
	}

	lines := make([]inventory.PurchaseLineRequest, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = inventory.PurchaseLineRequest{
			ItemID:    l.ItemID,
			Quantity:  ledger.NewAmount(l.Quantity),
			Unit:      l.Unit,
			UnitPrice: ledger.NewAmount(l.UnitPrice),
		}
	}

	receipt, err := h.Inventory.RecordPurchase(r.Context(), inventory.PurchaseRequest{
		RestaurantID:  req.RestaurantID,
		VendorID:      req.VendorID,
		InvoiceNo:     req.InvoiceNo,
		InvoiceDate:   invoiceDate,
		PaidAmount:    ledger.NewAmount(req.PaidAmount),
		PaymentStatus: req.PaymentStatus,
		Notes:         req.Notes,
		PerformedBy:   req.PerformedBy,
		Lines:         lines,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := PurchaseReceiptDTO{Purchase: toPurchaseDTO(receipt.Purchase)}
	for _, l := range receipt.Lines {
		dto.Lines = append(dto.Lines, toPurchaseLineDTO(l))
	}
	for _, m := range receipt.Movements {
		dto.Movements = append(dto.Movements, toMovementDTO(m))
	}
	writeJSON(w, http.StatusCreated, dto)
}

// ListPurchases returns purchase history.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("restaurant_id") == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required", nil)
		return
	}

	purchases, err := h.Inventory.Purchases(r.Context(), inventory.PurchaseQuery{
		RestaurantID: q.Get("restaurant_id"),
		VendorID:     q.Get("vendor_id"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PurchaseDTO, len(purchases))
	for i, p := range purchases {
		dtos[i] = toPurchaseDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPurchaseLines returns one purchase's lines.
func (h *Handler) ListPurchaseLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Store.PurchaseLines(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PurchaseLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toPurchaseLineDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}
