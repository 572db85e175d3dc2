/*
orders.go - order.Store implementation

WRITE DISCIPLINE:
  InsertOrder writes header + lines in one SQL transaction, so the
  "header without lines" partial state cannot be committed here.

  ReplaceLines is the riskiest sequence in the system and runs as:
    1. conditional header update (version check, replacing = TRUE)
    2. DELETE old lines
    3. INSERT new lines
    4. header finalize (new total, replacing = FALSE)
  all inside one transaction. A lost version race surfaces as
  ledger.ErrConcurrencyConflict before anything is deleted.

  UpdateOrder is a conditional full-header rewrite under the same
  version check.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/order"
)

// InsertOrder persists a new order header with its lines as one unit.
func (s *Store) InsertOrder(ctx context.Context, o *order.Order, lines []order.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin insert order", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
		(id, restaurant_id, table_id, status, order_type, customer_name, customer_phone,
		 total_amount, estimated_prep_minutes, payment_method, note, replacing, version,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.RestaurantID, nullString(o.TableID), o.Status, o.Type,
		nullString(o.CustomerName), nullString(o.CustomerPhone),
		toFixed(o.TotalAmount), o.EstimatedPrepMinutes, nullString(o.PaymentMethod),
		nullString(o.Note), o.Replacing, o.Version,
		o.CreatedAt.Format(time.RFC3339), o.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("insert order", err)
	}

	for _, l := range lines {
		if err := insertLine(ctx, tx, l); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit insert order", err)
	}
	return nil
}

func insertLine(ctx context.Context, tx *sql.Tx, l order.Line) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_lines (id, order_id, item_id, custom_name, quantity, portion, price_at_time, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrderID, nullString(l.ItemID), nullString(l.CustomName),
		l.Quantity, l.Portion, toFixed(l.PriceAtTime), nullString(l.Note),
	)
	if err != nil {
		return storeErr("insert order line", err)
	}
	return nil
}

// GetOrder returns an order header, or nil when it does not exist.
func (s *Store) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		o             order.Order
		tableID       sql.NullString
		customerName  sql.NullString
		customerPhone sql.NullString
		totalAmount   int64
		paymentMethod sql.NullString
		note          sql.NullString
		createdAt     string
		updatedAt     string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, table_id, status, order_type, customer_name, customer_phone,
		       total_amount, estimated_prep_minutes, payment_method, note, replacing, version,
		       created_at, updated_at
		FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.RestaurantID, &tableID, &o.Status, &o.Type, &customerName, &customerPhone,
		&totalAmount, &o.EstimatedPrepMinutes, &paymentMethod, &note, &o.Replacing, &o.Version,
		&createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get order", err)
	}

	o.TableID = tableID.String
	o.CustomerName = customerName.String
	o.CustomerPhone = customerPhone.String
	o.TotalAmount = fromFixed(totalAmount)
	o.PaymentMethod = paymentMethod.String
	o.Note = note.String
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return &o, nil
}

// GetLines returns an order's lines in insertion order.
func (s *Store) GetLines(ctx context.Context, orderID string) ([]order.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, item_id, custom_name, quantity, portion, price_at_time, note
		FROM order_lines WHERE order_id = ? ORDER BY rowid`, orderID)
	if err != nil {
		return nil, storeErr("get order lines", err)
	}
	defer rows.Close()

	var lines []order.Line
	for rows.Next() {
		var (
			l           order.Line
			itemID      sql.NullString
			customName  sql.NullString
			priceAtTime int64
			note        sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.OrderID, &itemID, &customName, &l.Quantity, &l.Portion, &priceAtTime, &note); err != nil {
			return nil, storeErr("scan order line", err)
		}
		l.ItemID = itemID.String
		l.CustomName = customName.String
		l.PriceAtTime = fromFixed(priceAtTime)
		l.Note = note.String
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ReplaceLines swaps an order's full line set under a version check.
// o carries the version the caller read; on success o reflects the new
// version with the replacing flag cleared.
func (s *Store) ReplaceLines(ctx context.Context, o *order.Order, lines []order.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin replace lines", err)
	}
	defer tx.Rollback()

	// Claim the order. Losing the version race here costs nothing: no
	// line has been touched yet.
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET replacing = TRUE, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		o.UpdatedAt.Format(time.RFC3339), o.ID, o.Version,
	)
	if err != nil {
		return storeErr("claim order for replace", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrConcurrencyConflict
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id = ?", o.ID); err != nil {
		return storeErr("delete old lines", err)
	}
	for _, l := range lines {
		if err := insertLine(ctx, tx, l); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET total_amount = ?, note = ?, replacing = FALSE, updated_at = ?
		WHERE id = ?`,
		toFixed(o.TotalAmount), nullString(o.Note), o.UpdatedAt.Format(time.RFC3339), o.ID,
	)
	if err != nil {
		return storeErr("finalize replace", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit replace lines", err)
	}

	o.Version++
	o.Replacing = false
	return nil
}

// UpdateOrder rewrites the mutable header fields under a version check.
func (s *Store) UpdateOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, total_amount = ?, estimated_prep_minutes = ?,
			payment_method = ?, note = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		o.Status, toFixed(o.TotalAmount), o.EstimatedPrepMinutes,
		nullString(o.PaymentMethod), nullString(o.Note),
		o.UpdatedAt.Format(time.RFC3339), o.ID, o.Version,
	)
	if err != nil {
		return storeErr("update order", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrConcurrencyConflict
	}

	o.Version++
	return nil
}

// DeleteOrder removes an order and its lines. Admin cleanup only.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin delete order", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id = ?", id); err != nil {
		return storeErr("delete order lines", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id); err != nil {
		return storeErr("delete order", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit delete order", err)
	}
	return nil
}

// ListOrders returns a restaurant's orders, newest first. status is an
// optional filter.
func (s *Store) ListOrders(ctx context.Context, restaurantID string, status order.Status, limit int) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, restaurant_id, table_id, status, order_type, customer_name, customer_phone,
		       total_amount, estimated_prep_minutes, payment_method, note, replacing, version,
		       created_at, updated_at
		FROM orders WHERE restaurant_id = ?`
	args := []any{restaurantID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var (
			o             order.Order
			tableID       sql.NullString
			customerName  sql.NullString
			customerPhone sql.NullString
			totalAmount   int64
			paymentMethod sql.NullString
			note          sql.NullString
			createdAt     string
			updatedAt     string
		)
		if err := rows.Scan(&o.ID, &o.RestaurantID, &tableID, &o.Status, &o.Type, &customerName, &customerPhone,
			&totalAmount, &o.EstimatedPrepMinutes, &paymentMethod, &note, &o.Replacing, &o.Version,
			&createdAt, &updatedAt); err != nil {
			return nil, storeErr("scan order", err)
		}
		o.TableID = tableID.String
		o.CustomerName = customerName.String
		o.CustomerPhone = customerPhone.String
		o.TotalAmount = fromFixed(totalAmount)
		o.PaymentMethod = paymentMethod.String
		o.Note = note.String
		o.CreatedAt = parseTime(createdAt)
		o.UpdatedAt = parseTime(updatedAt)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
