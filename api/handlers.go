/*
handlers.go - HTTP handlers: shared plumbing, menu and orders

PURPOSE:
  Exposes the ledger engines via REST. Handlers parse and validate the
  HTTP shape, delegate to domain logic, and map the error taxonomy onto
  status codes. No business rule lives here.

ERROR MAPPING:
  400  invalid input
  404  referenced record does not exist
  409  illegal status transition, version conflict, paid-payroll guard
  500  partial write (with the structured partial-state body), internal
  502  backing store unreachable

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - inventory_handlers.go, khata_handlers.go, payroll_handlers.go
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/pos-engine/inventory"
	"github.com/warp/pos-engine/khata"
	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/order"
	"github.com/warp/pos-engine/payroll"
	"github.com/warp/pos-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Orders    *order.Service
	Inventory *inventory.Engine
	Khata     *khata.Engine
	Payroll   *payroll.Aggregator
}

// NewHandler wires the engines onto the store. The store doubles as the
// order pricing catalog.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:     store,
		Orders:    order.NewService(store, store),
		Inventory: inventory.NewEngine(store),
		Khata:     khata.NewEngine(store),
		Payroll:   payroll.NewAggregator(store),
	}
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// errStatus maps the error taxonomy onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrConcurrencyConflict),
		errors.Is(err, payroll.ErrAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrStorageUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError renders a domain failure, giving partial-write errors
// their structured body so the caller sees exactly what landed.
func writeDomainError(w http.ResponseWriter, err error) {
	var partialPurchase *inventory.PartialPurchaseError
	if errors.As(err, &partialPurchase) {
		writeJSON(w, http.StatusInternalServerError, PartialPurchaseDTO{
			Error:      partialPurchase.Error(),
			PurchaseID: partialPurchase.PurchaseID,
			Succeeded:  partialPurchase.Succeeded,
			Failed:     partialPurchase.Failed,
		})
		return
	}
	writeError(w, errStatus(err), "operation failed", err)
}

// =============================================================================
// MENU HANDLERS
// =============================================================================

// SaveMenuItem creates or updates a menu item.
func (h *Handler) SaveMenuItem(w http.ResponseWriter, r *http.Request) {
	var req MenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.RestaurantID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id and name are required", nil)
		return
	}

	m := sqlite.MenuItem{
		ID:           req.ID,
		RestaurantID: req.RestaurantID,
		Name:         req.Name,
		Category:     req.Category,
		PriceFull:    ledger.NewAmount(req.PriceFull),
		IsAvailable:  true,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if req.PriceHalf != nil {
		half := ledger.NewAmount(*req.PriceHalf)
		m.PriceHalf = &half
	}
	if req.IsAvailable != nil {
		m.IsAvailable = *req.IsAvailable
	}

	if err := h.Store.SaveMenuItem(r.Context(), &m); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemDTO(m))
}

// ListMenuItems returns a restaurant's menu.
func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required", nil)
		return
	}

	items, err := h.Store.ListMenuItems(r.Context(), restaurantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]MenuItemDTO, len(items))
	for i, m := range items {
		dtos[i] = toMenuItemDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMenuItem returns one menu item.
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	m, err := h.Store.GetMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "menu item not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemDTO(*m))
}

// DeleteMenuItem removes a menu item. Existing order lines keep their
// snapshotted prices.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteMenuItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// CreateOrder opens a new priced order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	o, lines, err := h.Orders.Create(r.Context(), order.CreateRequest{
		RestaurantID:  req.RestaurantID,
		TableID:       req.TableID,
		Type:          order.OrderType(req.Type),
		Lines:         toLineRequests(req.Lines),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Note:          req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(o, lines))
}

// ListOrders returns a restaurant's orders, optionally by status.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		writeError(w, http.StatusBadRequest, "restaurant_id is required", nil)
		return
	}

	orders, err := h.Store.ListOrders(r.Context(), restaurantID,
		order.Status(r.URL.Query().Get("status")), 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = toOrderDTO(&orders[i], nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns an order with its lines.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, lines, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o, lines))
}

// ReplaceOrderLines swaps an order's full line set.
func (h *Handler) ReplaceOrderLines(w http.ResponseWriter, r *http.Request) {
	var req ReplaceLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	o, lines, err := h.Orders.Replace(r.Context(), chi.URLParam(r, "id"),
		toLineRequests(req.Lines), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o, lines))
}

// TransitionOrder moves an order along the status state machine.
func (h *Handler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	o, err := h.Orders.Transition(r.Context(), chi.URLParam(r, "id"),
		order.Status(req.Status), order.TransitionFields{
			EstimatedPrepMinutes: req.EstimatedPrepMinutes,
			PaymentMethod:        req.PaymentMethod,
		})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o, nil))
}

// DeleteOrder removes an order outright. Admin cleanup only.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
