/*
khata.go - khata.Store implementation

Mirrors inventory.go: AppendTransaction commits the ledger fact and the
atomic due increment together. UpsertCustomer resolves identity by
(restaurant, phone) first so a returning phone number lands on its
existing ledger; the upsert never touches current_due or version.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/pos-engine/khata"
	"github.com/warp/pos-engine/ledger"
)

// UpsertCustomer creates or updates a khata account. When the phone is
// already known for the restaurant, the existing account is updated in
// place and c takes over its id, due and version.
func (s *Store) UpsertCustomer(ctx context.Context, c *khata.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Phone != "" {
		var existingID string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM customers WHERE restaurant_id = ? AND phone = ?",
			c.RestaurantID, c.Phone,
		).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return storeErr("lookup customer by phone", err)
		}
		if err == nil {
			c.ID = existingID
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers
		(id, restaurant_id, name, phone, email, is_khata_active, credit_limit, current_due, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			is_khata_active = excluded.is_khata_active,
			credit_limit = excluded.credit_limit`,
		c.ID, c.RestaurantID, c.Name, c.Phone, nullString(c.Email),
		c.IsKhataActive, toFixed(c.CreditLimit), toFixed(c.CurrentDue), 1,
		c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("upsert customer", err)
	}

	// Reflect the authoritative ledger state back onto c.
	var due int64
	err = s.db.QueryRowContext(ctx,
		"SELECT current_due, version FROM customers WHERE id = ?", c.ID,
	).Scan(&due, &c.Version)
	if err != nil {
		return storeErr("reload customer", err)
	}
	c.CurrentDue = fromFixed(due)
	return nil
}

// GetCustomer returns a customer, or nil when it does not exist.
func (s *Store) GetCustomer(ctx context.Context, id string) (*khata.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		c           khata.Customer
		email       sql.NullString
		creditLimit int64
		currentDue  int64
		createdAt   string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, name, phone, email, is_khata_active, credit_limit, current_due, version, created_at
		FROM customers WHERE id = ?`, id,
	).Scan(&c.ID, &c.RestaurantID, &c.Name, &c.Phone, &email, &c.IsKhataActive,
		&creditLimit, &currentDue, &c.Version, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get customer", err)
	}

	c.Email = email.String
	c.CreditLimit = fromFixed(creditLimit)
	c.CurrentDue = fromFixed(currentDue)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// ListCustomers returns a restaurant's customers, by name. khataOnly
// restricts to active khata accounts.
func (s *Store) ListCustomers(ctx context.Context, restaurantID string, khataOnly bool) ([]khata.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, restaurant_id, name, phone, email, is_khata_active, credit_limit, current_due, version, created_at
		FROM customers WHERE restaurant_id = ?`
	if khataOnly {
		query += " AND is_khata_active = TRUE"
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, storeErr("list customers", err)
	}
	defer rows.Close()

	var customers []khata.Customer
	for rows.Next() {
		var (
			c           khata.Customer
			email       sql.NullString
			creditLimit int64
			currentDue  int64
			createdAt   string
		)
		if err := rows.Scan(&c.ID, &c.RestaurantID, &c.Name, &c.Phone, &email, &c.IsKhataActive,
			&creditLimit, &currentDue, &c.Version, &createdAt); err != nil {
			return nil, storeErr("scan customer", err)
		}
		c.Email = email.String
		c.CreditLimit = fromFixed(creditLimit)
		c.CurrentDue = fromFixed(currentDue)
		c.CreatedAt = parseTime(createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// CustomerIDs returns every customer id. Reconciliation sweep only.
func (s *Store) CustomerIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM customers")
	if err != nil {
		return nil, storeErr("list customer ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan customer id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendTransaction inserts the transaction fact and applies delta to
// the customer's cached due as one transaction, returning the
// post-update due.
func (s *Store) AppendTransaction(ctx context.Context, t khata.Transaction, delta ledger.Amount) (ledger.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Zero, storeErr("begin append transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO khata_transactions
		(id, restaurant_id, customer_id, tx_type, amount, reference_id, payment_method, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.RestaurantID, t.CustomerID, t.Type, toFixed(t.Amount),
		nullString(t.ReferenceID), nullString(t.PaymentMethod), nullString(t.Description),
		t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return ledger.Zero, storeErr("insert transaction", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE customers SET current_due = current_due + ?, version = version + 1
		WHERE id = ?`,
		toFixed(delta), t.CustomerID,
	)
	if err != nil {
		return ledger.Zero, storeErr("increment due", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.Zero, ledger.ErrNotFound
	}

	var newDue int64
	if err := tx.QueryRowContext(ctx,
		"SELECT current_due FROM customers WHERE id = ?", t.CustomerID,
	).Scan(&newDue); err != nil {
		return ledger.Zero, storeErr("read due", err)
	}

	if err := tx.Commit(); err != nil {
		return ledger.Zero, storeErr("commit append transaction", err)
	}
	return fromFixed(newDue), nil
}

// Transactions returns a customer's ledger, newest first.
func (s *Store) Transactions(ctx context.Context, customerID string) ([]khata.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, customer_id, tx_type, amount, reference_id, payment_method, description, created_at
		FROM khata_transactions WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	defer rows.Close()

	var transactions []khata.Transaction
	for rows.Next() {
		var (
			t             khata.Transaction
			amount        int64
			referenceID   sql.NullString
			paymentMethod sql.NullString
			description   sql.NullString
			createdAt     string
		)
		if err := rows.Scan(&t.ID, &t.RestaurantID, &t.CustomerID, &t.Type, &amount,
			&referenceID, &paymentMethod, &description, &createdAt); err != nil {
			return nil, storeErr("scan transaction", err)
		}
		t.Amount = fromFixed(amount)
		t.ReferenceID = referenceID.String
		t.PaymentMethod = paymentMethod.String
		t.Description = description.String
		t.CreatedAt = parseTime(createdAt)
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// SumTransactions recomputes a customer's due from the full ledger.
func (s *Store) SumTransactions(ctx context.Context, customerID string) (ledger.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN tx_type = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM khata_transactions WHERE customer_id = ?`, customerID,
	).Scan(&sum)
	if err != nil {
		return ledger.Zero, storeErr("sum transactions", err)
	}
	return fromFixed(sum), nil
}

// SetDue overwrites the cached due. Reconciliation only.
func (s *Store) SetDue(ctx context.Context, customerID string, due ledger.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE customers SET current_due = ?, version = version + 1 WHERE id = ?`,
		toFixed(due), customerID,
	)
	if err != nil {
		return storeErr("set due", err)
	}
	return nil
}
