/*
dto.go - Request and response shapes for the HTTP API

AMOUNT ENCODING:
  Requests carry amounts as JSON numbers (what a till frontend sends);
  they are converted to decimal at the boundary and never used as floats
  past it. Responses render amounts as decimal strings so a stored
  price round-trips byte-exact.
*/
package api

import (
	"time"

	"github.com/warp/pos-engine/inventory"
	"github.com/warp/pos-engine/khata"
	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/order"
	"github.com/warp/pos-engine/payroll"
	"github.com/warp/pos-engine/store/sqlite"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// =============================================================================
// MENU
// =============================================================================

type MenuItemRequest struct {
	ID           string   `json:"id,omitempty"`
	RestaurantID string   `json:"restaurant_id"`
	Name         string   `json:"name"`
	Category     string   `json:"category,omitempty"`
	PriceFull    float64  `json:"price_full"`
	PriceHalf    *float64 `json:"price_half,omitempty"`
	IsAvailable  *bool    `json:"is_available,omitempty"`
}

type MenuItemDTO struct {
	ID           string  `json:"id"`
	RestaurantID string  `json:"restaurant_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category,omitempty"`
	PriceFull    string  `json:"price_full"`
	PriceHalf    *string `json:"price_half,omitempty"`
	IsAvailable  bool    `json:"is_available"`
}

func toMenuItemDTO(m sqlite.MenuItem) MenuItemDTO {
	dto := MenuItemDTO{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Category:     m.Category,
		PriceFull:    m.PriceFull.String(),
		IsAvailable:  m.IsAvailable,
	}
	if m.PriceHalf != nil {
		half := m.PriceHalf.String()
		dto.PriceHalf = &half
	}
	return dto
}

// =============================================================================
// ORDERS
// =============================================================================

type OrderLineRequest struct {
	ItemID        string   `json:"item_id,omitempty"`
	CustomName    string   `json:"custom_name,omitempty"`
	Quantity      int64    `json:"quantity"`
	Portion       string   `json:"portion,omitempty"`
	OverridePrice *float64 `json:"override_price,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Note          string   `json:"note,omitempty"`
}

func (r OrderLineRequest) toDomain() order.LineRequest {
	req := order.LineRequest{
		ItemID:     r.ItemID,
		CustomName: r.CustomName,
		Quantity:   r.Quantity,
		Portion:    order.Portion(r.Portion),
		Note:       r.Note,
	}
	if r.OverridePrice != nil {
		a := ledger.NewAmount(*r.OverridePrice)
		req.OverridePrice = &a
	}
	if r.Price != nil {
		a := ledger.NewAmount(*r.Price)
		req.Price = &a
	}
	return req
}

func toLineRequests(reqs []OrderLineRequest) []order.LineRequest {
	out := make([]order.LineRequest, len(reqs))
	for i, r := range reqs {
		out[i] = r.toDomain()
	}
	return out
}

type CreateOrderRequest struct {
	RestaurantID  string             `json:"restaurant_id"`
	TableID       string             `json:"table_id,omitempty"`
	Type          string             `json:"order_type,omitempty"`
	Lines         []OrderLineRequest `json:"lines"`
	CustomerName  string             `json:"customer_name,omitempty"`
	CustomerPhone string             `json:"customer_phone,omitempty"`
	Note          string             `json:"note,omitempty"`
}

type ReplaceLinesRequest struct {
	Lines []OrderLineRequest `json:"lines"`
	Note  string             `json:"note,omitempty"`
}

type TransitionRequest struct {
	Status               string `json:"status"`
	EstimatedPrepMinutes int    `json:"estimated_prep_minutes,omitempty"`
	PaymentMethod        string `json:"payment_method,omitempty"`
}

type OrderLineDTO struct {
	ID          string `json:"id"`
	ItemID      string `json:"item_id,omitempty"`
	CustomName  string `json:"custom_name,omitempty"`
	Quantity    int64  `json:"quantity"`
	Portion     string `json:"portion"`
	PriceAtTime string `json:"price_at_time"`
	LineTotal   string `json:"line_total"`
	Note        string `json:"note,omitempty"`
}

type OrderDTO struct {
	ID                   string         `json:"id"`
	RestaurantID         string         `json:"restaurant_id"`
	TableID              string         `json:"table_id,omitempty"`
	Status               string         `json:"status"`
	Type                 string         `json:"order_type"`
	CustomerName         string         `json:"customer_name,omitempty"`
	CustomerPhone        string         `json:"customer_phone,omitempty"`
	TotalAmount          string         `json:"total_amount"`
	EstimatedPrepMinutes int            `json:"estimated_prep_minutes,omitempty"`
	PaymentMethod        string         `json:"payment_method,omitempty"`
	Note                 string         `json:"note,omitempty"`
	Version              int64          `json:"version"`
	Lines                []OrderLineDTO `json:"lines,omitempty"`
	CreatedAt            string         `json:"created_at"`
	UpdatedAt            string         `json:"updated_at"`
}

func toOrderDTO(o *order.Order, lines []order.Line) OrderDTO {
	dto := OrderDTO{
		ID:                   o.ID,
		RestaurantID:         o.RestaurantID,
		TableID:              o.TableID,
		Status:               string(o.Status),
		Type:                 string(o.Type),
		CustomerName:         o.CustomerName,
		CustomerPhone:        o.CustomerPhone,
		TotalAmount:          o.TotalAmount.String(),
		EstimatedPrepMinutes: o.EstimatedPrepMinutes,
		PaymentMethod:        o.PaymentMethod,
		Note:                 o.Note,
		Version:              o.Version,
		CreatedAt:            o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            o.UpdatedAt.Format(time.RFC3339),
	}
	for _, l := range lines {
		dto.Lines = append(dto.Lines, OrderLineDTO{
			ID:          l.ID,
			ItemID:      l.ItemID,
			CustomName:  l.CustomName,
			Quantity:    l.Quantity,
			Portion:     string(l.Portion),
			PriceAtTime: l.PriceAtTime.String(),
			LineTotal:   l.LineTotal().String(),
			Note:        l.Note,
		})
	}
	return dto
}

// =============================================================================
// INVENTORY
// =============================================================================

type InventoryItemRequest struct {
	RestaurantID  string  `json:"restaurant_id"`
	Name          string  `json:"name"`
	Unit          string  `json:"unit,omitempty"`
	OpeningStock  float64 `json:"opening_stock,omitempty"`
	MinStockLevel float64 `json:"min_stock_level,omitempty"`
}

type InventoryItemDTO struct {
	ID                string `json:"id"`
	RestaurantID      string `json:"restaurant_id"`
	Name              string `json:"name"`
	Unit              string `json:"unit,omitempty"`
	CurrentStock      string `json:"current_stock"`
	MinStockLevel     string `json:"min_stock_level"`
	LastPurchasePrice string `json:"last_purchase_price"`
	LowStock          bool   `json:"low_stock"`
	Version           int64  `json:"version"`
}

func toInventoryItemDTO(it inventory.Item) InventoryItemDTO {
	return InventoryItemDTO{
		ID:                it.ID,
		RestaurantID:      it.RestaurantID,
		Name:              it.Name,
		Unit:              it.Unit,
		CurrentStock:      it.CurrentStock.String(),
		MinStockLevel:     it.MinStockLevel.String(),
		LastPurchasePrice: it.LastPurchasePrice.String(),
		LowStock:          it.LowStock(),
		Version:           it.Version,
	}
}

type MovementRequest struct {
	RestaurantID string  `json:"restaurant_id"`
	ItemID       string  `json:"item_id"`
	Type         string  `json:"movement_type"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	ReferenceID  string  `json:"reference_id,omitempty"`
	PerformedBy  string  `json:"performed_by,omitempty"`
}

type MovementDTO struct {
	ID          string `json:"id"`
	ItemID      string `json:"item_id"`
	Type        string `json:"movement_type"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	PerformedBy string `json:"performed_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toMovementDTO(m inventory.Movement) MovementDTO {
	return MovementDTO{
		ID:          m.ID,
		ItemID:      m.ItemID,
		Type:        string(m.Type),
		Quantity:    m.Quantity.String(),
		Unit:        m.Unit,
		Reason:      m.Reason,
		ReferenceID: m.ReferenceID,
		PerformedBy: m.PerformedBy,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

type MovementResultDTO struct {
	Movement MovementDTO `json:"movement"`
	NewStock string      `json:"new_stock"`
}

type DriftReportDTO struct {
	EntityID  string `json:"entity_id"`
	Cached    string `json:"cached"`
	Computed  string `json:"computed"`
	Drift     string `json:"drift"`
	Corrected bool   `json:"corrected"`
}

func toDriftReportDTO(r *ledger.DriftReport) DriftReportDTO {
	return DriftReportDTO{
		EntityID:  r.EntityID,
		Cached:    r.Cached.String(),
		Computed:  r.Computed.String(),
		Drift:     r.Drift().String(),
		Corrected: r.Corrected,
	}
}

// =============================================================================
// PURCHASES
// =============================================================================

type PurchaseLineRequestDTO struct {
	ItemID    string  `json:"item_id"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit,omitempty"`
	UnitPrice float64 `json:"unit_price"`
}

type PurchaseRequestDTO struct {
	RestaurantID  string                   `json:"restaurant_id"`
	VendorID      string                   `json:"vendor_id,omitempty"`
	InvoiceNo     string                   `json:"invoice_no,omitempty"`
	InvoiceDate   string                   `json:"invoice_date,omitempty"`
	PaidAmount    float64                  `json:"paid_amount,omitempty"`
	PaymentStatus string                   `json:"payment_status,omitempty"`
	Notes         string                   `json:"notes,omitempty"`
	PerformedBy   string                   `json:"performed_by,omitempty"`
	Lines         []PurchaseLineRequestDTO `json:"lines"`
}

type PurchaseDTO struct {
	ID            string `json:"id"`
	RestaurantID  string `json:"restaurant_id"`
	VendorID      string `json:"vendor_id,omitempty"`
	InvoiceNo     string `json:"invoice_no,omitempty"`
	InvoiceDate   string `json:"invoice_date"`
	TotalAmount   string `json:"total_amount"`
	PaidAmount    string `json:"paid_amount"`
	PaymentStatus string `json:"payment_status"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toPurchaseDTO(p inventory.Purchase) PurchaseDTO {
	return PurchaseDTO{
		ID:            p.ID,
		RestaurantID:  p.RestaurantID,
		VendorID:      p.VendorID,
		InvoiceNo:     p.InvoiceNo,
		InvoiceDate:   p.InvoiceDate.Format(time.RFC3339),
		TotalAmount:   p.TotalAmount.String(),
		PaidAmount:    p.PaidAmount.String(),
		PaymentStatus: p.PaymentStatus,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

type PurchaseLineDTO struct {
	ID        string `json:"id"`
	ItemID    string `json:"item_id"`
	Quantity  string `json:"quantity"`
	Unit      string `json:"unit,omitempty"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

func toPurchaseLineDTO(l inventory.PurchaseLine) PurchaseLineDTO {
	return PurchaseLineDTO{
		ID:        l.ID,
		ItemID:    l.ItemID,
		Quantity:  l.Quantity.String(),
		Unit:      l.Unit,
		UnitPrice: l.UnitPrice.String(),
		LineTotal: l.LineTotal.String(),
	}
}

type PurchaseReceiptDTO struct {
	Purchase  PurchaseDTO       `json:"purchase"`
	Lines     []PurchaseLineDTO `json:"lines"`
	Movements []MovementDTO     `json:"movements"`
}

// PartialPurchaseDTO is the 500 body when a purchase stopped midway.
type PartialPurchaseDTO struct {
	Error      string                  `json:"error"`
	PurchaseID string                  `json:"purchase_id"`
	Succeeded  []inventory.LineOutcome `json:"succeeded"`
	Failed     []inventory.LineOutcome `json:"failed"`
}

// =============================================================================
// KHATA
// =============================================================================

type CustomerRequest struct {
	ID            string  `json:"id,omitempty"`
	RestaurantID  string  `json:"restaurant_id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone,omitempty"`
	Email         string  `json:"email,omitempty"`
	IsKhataActive bool    `json:"is_khata_active"`
	CreditLimit   float64 `json:"credit_limit,omitempty"`
}

type CustomerDTO struct {
	ID            string `json:"id"`
	RestaurantID  string `json:"restaurant_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	IsKhataActive bool   `json:"is_khata_active"`
	CreditLimit   string `json:"credit_limit"`
	CurrentDue    string `json:"current_due"`
	Version       int64  `json:"version"`
}

func toCustomerDTO(c khata.Customer) CustomerDTO {
	return CustomerDTO{
		ID:            c.ID,
		RestaurantID:  c.RestaurantID,
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		IsKhataActive: c.IsKhataActive,
		CreditLimit:   c.CreditLimit.String(),
		CurrentDue:    c.CurrentDue.String(),
		Version:       c.Version,
	}
}

type KhataTransactionRequest struct {
	RestaurantID  string  `json:"restaurant_id"`
	CustomerID    string  `json:"customer_id"`
	Type          string  `json:"tx_type"`
	Amount        float64 `json:"amount"`
	ReferenceID   string  `json:"reference_id,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Description   string  `json:"description,omitempty"`
}

type KhataTransactionDTO struct {
	ID            string `json:"id"`
	CustomerID    string `json:"customer_id"`
	Type          string `json:"tx_type"`
	Amount        string `json:"amount"`
	ReferenceID   string `json:"reference_id,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toKhataTransactionDTO(t khata.Transaction) KhataTransactionDTO {
	return KhataTransactionDTO{
		ID:            t.ID,
		CustomerID:    t.CustomerID,
		Type:          string(t.Type),
		Amount:        t.Amount.String(),
		ReferenceID:   t.ReferenceID,
		PaymentMethod: t.PaymentMethod,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
}

type KhataTransactionResultDTO struct {
	Transaction KhataTransactionDTO `json:"transaction"`
	NewDue      string              `json:"new_due"`
}

// =============================================================================
// STAFF / PAYROLL
// =============================================================================

type StaffRequest struct {
	ID           string  `json:"id,omitempty"`
	RestaurantID string  `json:"restaurant_id"`
	Name         string  `json:"name"`
	Role         string  `json:"role,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	BaseSalary   float64 `json:"base_salary"`
	SalaryType   string  `json:"salary_type,omitempty"`
	Status       string  `json:"status,omitempty"`
	JoiningDate  string  `json:"joining_date,omitempty"`
}

type StaffDTO struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	Phone        string `json:"phone,omitempty"`
	BaseSalary   string `json:"base_salary"`
	SalaryType   string `json:"salary_type"`
	Status       string `json:"status"`
	JoiningDate  string `json:"joining_date,omitempty"`
}

func toStaffDTO(st payroll.Staff) StaffDTO {
	dto := StaffDTO{
		ID:           st.ID,
		RestaurantID: st.RestaurantID,
		Name:         st.Name,
		Role:         st.Role,
		Phone:        st.Phone,
		BaseSalary:   st.BaseSalary.String(),
		SalaryType:   st.SalaryType,
		Status:       st.Status,
	}
	if !st.JoiningDate.IsZero() {
		dto.JoiningDate = st.JoiningDate.Format("2006-01-02")
	}
	return dto
}

type AttendanceRequest struct {
	Date   string `json:"date"`   // YYYY-MM-DD
	Status string `json:"status"` // present | absent | half-day | leave
}

type AdvanceRequest struct {
	Type   string  `json:"type"` // issued | recovered
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

type GeneratePayrollRequest struct {
	StaffID string `json:"staff_id"`
	Month   string `json:"month"` // YYYY-MM
	Force   bool   `json:"force,omitempty"`
}

type PayrollDTO struct {
	ID                 string                    `json:"id"`
	StaffID            string                    `json:"staff_id"`
	Month              string                    `json:"month"`
	BaseSalarySnapshot string                    `json:"base_salary_snapshot"`
	Attendance         payroll.AttendanceSummary `json:"attendance"`
	AdvanceDeductions  string                    `json:"advance_deductions"`
	FinalAmount        string                    `json:"final_amount"`
	Status             string                    `json:"status"`
	PaidAt             string                    `json:"paid_at,omitempty"`
	GeneratedAt        string                    `json:"generated_at"`
}

func toPayrollDTO(p payroll.Payroll) PayrollDTO {
	dto := PayrollDTO{
		ID:                 p.ID,
		StaffID:            p.StaffID,
		Month:              p.Month,
		BaseSalarySnapshot: p.BaseSalarySnapshot.String(),
		Attendance:         p.Attendance,
		AdvanceDeductions:  p.AdvanceDeductions.String(),
		FinalAmount:        p.FinalAmount.String(),
		Status:             string(p.Status),
		GeneratedAt:        p.GeneratedAt.Format(time.RFC3339),
	}
	if p.PaidAt != nil {
		dto.PaidAt = p.PaidAt.Format(time.RFC3339)
	}
	return dto
}

type AdvanceBalanceDTO struct {
	StaffID        string `json:"staff_id"`
	TotalIssued    string `json:"total_issued"`
	TotalRecovered string `json:"total_recovered"`
	Outstanding    string `json:"outstanding"`
}

func toAdvanceBalanceDTO(b *payroll.AdvanceBalance) AdvanceBalanceDTO {
	return AdvanceBalanceDTO{
		StaffID:        b.StaffID,
		TotalIssued:    b.TotalIssued.String(),
		TotalRecovered: b.TotalRecovered.String(),
		Outstanding:    b.Outstanding.String(),
	}
}
