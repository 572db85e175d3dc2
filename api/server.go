/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the till frontend

ROUTE GROUPS:
  /api/menu/*        Menu management (the pricing catalog)
  /api/orders/*      Order lifecycle
  /api/inventory/*   Stock ledger and reconciliation
  /api/purchases/*   Purchase invoices
  /api/khata/*       Customer credit ledger
  /api/staff/*       Staff, attendance, advances
  /api/payroll/*     Monthly payroll

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go and siblings: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/menu", func(r chi.Router) {
			r.Get("/", h.ListMenuItems)
			r.Post("/", h.SaveMenuItem)
			r.Get("/{id}", h.GetMenuItem)
			r.Delete("/{id}", h.DeleteMenuItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.Put("/{id}/lines", h.ReplaceOrderLines)
			r.Post("/{id}/status", h.TransitionOrder)
			r.Delete("/{id}", h.DeleteOrder)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/items", h.ListInventoryItems)
			r.Post("/items", h.CreateInventoryItem)
			r.Get("/items/low-stock", h.ListLowStockItems)
			r.Get("/items/{id}", h.GetInventoryItem)
			r.Post("/items/{id}/reconcile", h.ReconcileItem)
			r.Get("/movements", h.ListMovements)
			r.Post("/movements", h.ApplyMovement)
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", h.ListPurchases)
			r.Post("/", h.RecordPurchase)
			r.Get("/{id}/lines", h.ListPurchaseLines)
		})

		r.Route("/khata", func(r chi.Router) {
			r.Get("/customers", h.ListCustomers)
			r.Post("/customers", h.SaveCustomer)
			r.Get("/customers/{id}", h.GetCustomer)
			r.Get("/customers/{id}/ledger", h.GetKhataLedger)
			r.Post("/customers/{id}/reconcile", h.ReconcileCustomer)
			r.Post("/transactions", h.RecordKhataTransaction)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.SaveStaff)
			r.Post("/{id}/attendance", h.MarkAttendance)
			r.Post("/{id}/advances", h.RecordAdvance)
			r.Get("/{id}/advances", h.GetAdvanceBalance)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Get("/", h.ListPayroll)
			r.Post("/generate", h.GeneratePayroll)
			r.Post("/{id}/pay", h.MarkPayrollPaid)
		})
	})

	return r
}
