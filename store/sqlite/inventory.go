/*
inventory.go - inventory.Store implementation

AppendMovement is the one-unit guarantee behind the stock ledger: the
movement insert and the cache increment commit or roll back together.
The increment is SET current_stock = current_stock + ?, so concurrent
movements against the same item both land regardless of interleaving.

SumMovements recomputes a balance purely in SQL. ADJUST rows store the
signed delta; everything else stores a magnitude with the sign decided
by type.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/pos-engine/inventory"
	"github.com/warp/pos-engine/ledger"
)

// InsertItem persists a new inventory item.
func (s *Store) InsertItem(ctx context.Context, item *inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items
		(id, restaurant_id, name, unit, current_stock, min_stock_level, last_purchase_price,
		 version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.RestaurantID, item.Name, nullString(item.Unit),
		toFixed(item.CurrentStock), toFixed(item.MinStockLevel), toFixed(item.LastPurchasePrice),
		item.Version, item.CreatedAt.Format(time.RFC3339), item.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("insert item", err)
	}
	return nil
}

// GetItem returns an inventory item, or nil when it does not exist.
func (s *Store) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		item              inventory.Item
		unit              sql.NullString
		currentStock      int64
		minStockLevel     int64
		lastPurchasePrice int64
		createdAt         string
		updatedAt         string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, name, unit, current_stock, min_stock_level, last_purchase_price,
		       version, created_at, updated_at
		FROM inventory_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.RestaurantID, &item.Name, &unit, &currentStock, &minStockLevel,
		&lastPurchasePrice, &item.Version, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get item", err)
	}

	item.Unit = unit.String
	item.CurrentStock = fromFixed(currentStock)
	item.MinStockLevel = fromFixed(minStockLevel)
	item.LastPurchasePrice = fromFixed(lastPurchasePrice)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return &item, nil
}

// ListItems returns a restaurant's inventory, by name.
func (s *Store) ListItems(ctx context.Context, restaurantID string) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, unit, current_stock, min_stock_level, last_purchase_price,
		       version, created_at, updated_at
		FROM inventory_items WHERE restaurant_id = ? ORDER BY name`, restaurantID)
	if err != nil {
		return nil, storeErr("list items", err)
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		var (
			item              inventory.Item
			unit              sql.NullString
			currentStock      int64
			minStockLevel     int64
			lastPurchasePrice int64
			createdAt         string
			updatedAt         string
		)
		if err := rows.Scan(&item.ID, &item.RestaurantID, &item.Name, &unit, &currentStock,
			&minStockLevel, &lastPurchasePrice, &item.Version, &createdAt, &updatedAt); err != nil {
			return nil, storeErr("scan item", err)
		}
		item.Unit = unit.String
		item.CurrentStock = fromFixed(currentStock)
		item.MinStockLevel = fromFixed(minStockLevel)
		item.LastPurchasePrice = fromFixed(lastPurchasePrice)
		item.CreatedAt = parseTime(createdAt)
		item.UpdatedAt = parseTime(updatedAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// AppendMovement inserts the movement fact and applies delta to the
// item's cached stock as one transaction, returning the post-update
// stock.
func (s *Store) AppendMovement(ctx context.Context, m inventory.Movement, delta ledger.Amount) (ledger.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Zero, storeErr("begin append movement", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements
		(id, restaurant_id, item_id, movement_type, quantity, unit, reason, reference_id, performed_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RestaurantID, m.ItemID, m.Type, toFixed(m.Quantity), nullString(m.Unit),
		nullString(m.Reason), nullString(m.ReferenceID), nullString(m.PerformedBy),
		m.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return ledger.Zero, storeErr("insert movement", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET current_stock = current_stock + ?, version = version + 1, updated_at = ?
		WHERE id = ?`,
		toFixed(delta), time.Now().UTC().Format(time.RFC3339), m.ItemID,
	)
	if err != nil {
		return ledger.Zero, storeErr("increment stock", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Zero, ledger.ErrNotFound
	}

	var newStock int64
	if err := tx.QueryRowContext(ctx,
		"SELECT current_stock FROM inventory_items WHERE id = ?", m.ItemID,
	).Scan(&newStock); err != nil {
		return ledger.Zero, storeErr("read stock", err)
	}

	if err := tx.Commit(); err != nil {
		return ledger.Zero, storeErr("commit append movement", err)
	}
	return fromFixed(newStock), nil
}

// Movements returns movement history, newest first.
func (s *Store) Movements(ctx context.Context, q inventory.MovementQuery) ([]inventory.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, restaurant_id, item_id, movement_type, quantity, unit, reason, reference_id, performed_by, created_at
		FROM stock_movements WHERE restaurant_id = ?`
	args := []any{q.RestaurantID}
	if q.ItemID != "" {
		query += " AND item_id = ?"
		args = append(args, q.ItemID)
	}
	if q.Type != "" {
		query += " AND movement_type = ?"
		args = append(args, q.Type)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list movements", err)
	}
	defer rows.Close()

	var movements []inventory.Movement
	for rows.Next() {
		var (
			m           inventory.Movement
			quantity    int64
			unit        sql.NullString
			reason      sql.NullString
			referenceID sql.NullString
			performedBy sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.ItemID, &m.Type, &quantity, &unit,
			&reason, &referenceID, &performedBy, &createdAt); err != nil {
			return nil, storeErr("scan movement", err)
		}
		m.Quantity = fromFixed(quantity)
		m.Unit = unit.String
		m.Reason = reason.String
		m.ReferenceID = referenceID.String
		m.PerformedBy = performedBy.String
		m.CreatedAt = parseTime(createdAt)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// SumMovements recomputes an item's balance from its full ledger.
func (s *Store) SumMovements(ctx context.Context, itemID string) (ledger.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE
			WHEN movement_type IN ('IN', 'RETURN', 'ADJUST') THEN quantity
			ELSE -quantity
		END), 0)
		FROM stock_movements WHERE item_id = ?`, itemID,
	).Scan(&sum)
	if err != nil {
		return ledger.Zero, storeErr("sum movements", err)
	}
	return fromFixed(sum), nil
}

// SetStock overwrites the cached balance. Reconciliation only.
func (s *Store) SetStock(ctx context.Context, itemID string, stock ledger.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET current_stock = ?, version = version + 1, updated_at = ?
		WHERE id = ?`,
		toFixed(stock), time.Now().UTC().Format(time.RFC3339), itemID,
	)
	if err != nil {
		return storeErr("set stock", err)
	}
	return nil
}

// ItemIDs returns every inventory item id. Reconciliation sweep only.
func (s *Store) ItemIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM inventory_items")
	if err != nil {
		return nil, storeErr("list item ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan item id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertPurchase persists a purchase header.
func (s *Store) InsertPurchase(ctx context.Context, p *inventory.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases
		(id, restaurant_id, vendor_id, invoice_no, invoice_date, total_amount, paid_amount,
		 payment_status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RestaurantID, nullString(p.VendorID), nullString(p.InvoiceNo),
		p.InvoiceDate.Format(time.RFC3339), toFixed(p.TotalAmount), toFixed(p.PaidAmount),
		p.PaymentStatus, nullString(p.Notes), p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("insert purchase", err)
	}
	return nil
}

// InsertPurchaseLine persists one purchase line.
func (s *Store) InsertPurchaseLine(ctx context.Context, l *inventory.PurchaseLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchase_lines (id, purchase_id, item_id, quantity, unit, unit_price, line_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.PurchaseID, l.ItemID, toFixed(l.Quantity), nullString(l.Unit),
		toFixed(l.UnitPrice), toFixed(l.LineTotal),
	)
	if err != nil {
		return storeErr("insert purchase line", err)
	}
	return nil
}

// SetLastPurchasePrice records the most recent unit cost on the item.
func (s *Store) SetLastPurchasePrice(ctx context.Context, itemID string, price ledger.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE inventory_items SET last_purchase_price = ?, updated_at = ? WHERE id = ?`,
		toFixed(price), time.Now().UTC().Format(time.RFC3339), itemID,
	)
	if err != nil {
		return storeErr("set last purchase price", err)
	}
	return nil
}

// Purchases returns purchase history, newest invoice first.
func (s *Store) Purchases(ctx context.Context, q inventory.PurchaseQuery) ([]inventory.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, restaurant_id, vendor_id, invoice_no, invoice_date, total_amount, paid_amount,
		       payment_status, notes, created_at
		FROM purchases WHERE restaurant_id = ?`
	args := []any{q.RestaurantID}
	if q.VendorID != "" {
		query += " AND vendor_id = ?"
		args = append(args, q.VendorID)
	}
	if !q.From.IsZero() {
		query += " AND invoice_date >= ?"
		args = append(args, q.From.Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		query += " AND invoice_date <= ?"
		args = append(args, q.To.Format(time.RFC3339))
	}
	query += " ORDER BY invoice_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list purchases", err)
	}
	defer rows.Close()

	var purchases []inventory.Purchase
	for rows.Next() {
		var (
			p           inventory.Purchase
			vendorID    sql.NullString
			invoiceNo   sql.NullString
			invoiceDate string
			totalAmount int64
			paidAmount  int64
			notes       sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&p.ID, &p.RestaurantID, &vendorID, &invoiceNo, &invoiceDate,
			&totalAmount, &paidAmount, &p.PaymentStatus, &notes, &createdAt); err != nil {
			return nil, storeErr("scan purchase", err)
		}
		p.VendorID = vendorID.String
		p.InvoiceNo = invoiceNo.String
		p.InvoiceDate = parseTime(invoiceDate)
		p.TotalAmount = fromFixed(totalAmount)
		p.PaidAmount = fromFixed(paidAmount)
		p.Notes = notes.String
		p.CreatedAt = parseTime(createdAt)
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// PurchaseLines returns the lines of one purchase.
func (s *Store) PurchaseLines(ctx context.Context, purchaseID string) ([]inventory.PurchaseLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, purchase_id, item_id, quantity, unit, unit_price, line_total
		FROM purchase_lines WHERE purchase_id = ? ORDER BY rowid`, purchaseID)
	if err != nil {
		return nil, storeErr("list purchase lines", err)
	}
	defer rows.Close()

	var lines []inventory.PurchaseLine
	for rows.Next() {
		var (
			l         inventory.PurchaseLine
			quantity  int64
			unit      sql.NullString
			unitPrice int64
			lineTotal int64
		)
		if err := rows.Scan(&l.ID, &l.PurchaseID, &l.ItemID, &quantity, &unit, &unitPrice, &lineTotal); err != nil {
			return nil, storeErr("scan purchase line", err)
		}
		l.Quantity = fromFixed(quantity)
		l.Unit = unit.String
		l.UnitPrice = fromFixed(unitPrice)
		l.LineTotal = fromFixed(lineTotal)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
