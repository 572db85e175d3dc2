/*
Package sqlite provides the SQLite-backed implementation of every storage
interface in the engine. In production the same patterns apply to
PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  order.Store       Order headers + lines (versioned writes)
  order.Catalog     Menu lookup for pricing
  inventory.Store   Item cache + movement ledger + purchases
  khata.Store       Customer cache + transaction ledger
  payroll.Store     Staff, attendance, payroll cache, advances

APPEND-ONLY ENFORCEMENT:
  stock_movements and khata_transactions are ledgers: no UPDATE, no
  DELETE, ever. Corrections happen through new ADJUST / PAYMENT facts.

ATOMIC INCREMENTS:
  Every cached balance column (orders.total_amount aside, which is
  rewritten whole under a version check) is updated with
  SET col = col + ?, never read-then-write. To make that increment exact,
  all money and quantity columns are INTEGER fixed-point at 4 decimal
  places: a TEXT decimal cannot be incremented in SQL and REAL drifts.
  toFixed / fromFixed convert at the boundary.

OPTIMISTIC VERSIONING:
  Conditional writes carry "AND version = ?"; RowsAffected == 0 maps to
  ledger.ErrConcurrencyConflict. Grounded on the classic compare-and-swap
  UPDATE used by inventory reservation systems.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery. sync.RWMutex serializes
  writers above the driver.

USAGE:
  store, err := sqlite.New("./data/pos.db")   // ":memory:" for tests
  ...
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.
*/
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/pos-engine/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; a second pooled connection buys
	// nothing and would give ":memory:" callers a separate empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Menu (the order pricing catalog)
	CREATE TABLE IF NOT EXISTS menu_items (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT,
		price_full INTEGER NOT NULL,
		price_half INTEGER,
		is_available BOOLEAN DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_menu_items_restaurant
		ON menu_items(restaurant_id);

	-- Orders (versioned aggregate header)
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		table_id TEXT,
		status TEXT NOT NULL,
		order_type TEXT NOT NULL,
		customer_name TEXT,
		customer_phone TEXT,
		total_amount INTEGER NOT NULL DEFAULT 0,
		estimated_prep_minutes INTEGER DEFAULT 0,
		payment_method TEXT,
		note TEXT,
		replacing BOOLEAN DEFAULT FALSE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_restaurant_status
		ON orders(restaurant_id, status);
	CREATE INDEX IF NOT EXISTS idx_orders_created
		ON orders(created_at DESC);

	CREATE TABLE IF NOT EXISTS order_lines (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		item_id TEXT,
		custom_name TEXT,
		quantity INTEGER NOT NULL,
		portion TEXT NOT NULL,
		price_at_time INTEGER NOT NULL,
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_order_lines_order
		ON order_lines(order_id);

	-- Inventory items (cached balance + version)
	CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		unit TEXT,
		current_stock INTEGER NOT NULL DEFAULT 0,
		min_stock_level INTEGER NOT NULL DEFAULT 0,
		last_purchase_price INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_inventory_items_restaurant
		ON inventory_items(restaurant_id);

	-- Stock movements (append-only ledger)
	CREATE TABLE IF NOT EXISTS stock_movements (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		movement_type TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit TEXT,
		reason TEXT,
		reference_id TEXT,
		performed_by TEXT,
		created_at TEXT NOT NULL
	);

	-- Balance recomputation (hot path for reconciliation)
	CREATE INDEX IF NOT EXISTS idx_movements_item
		ON stock_movements(item_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_movements_restaurant
		ON stock_movements(restaurant_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_movements_reference
		ON stock_movements(reference_id) WHERE reference_id IS NOT NULL;

	-- Purchases (invoice header + lines)
	CREATE TABLE IF NOT EXISTS purchases (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		vendor_id TEXT,
		invoice_no TEXT,
		invoice_date TEXT NOT NULL,
		total_amount INTEGER NOT NULL DEFAULT 0,
		paid_amount INTEGER NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_purchases_restaurant
		ON purchases(restaurant_id, invoice_date DESC);

	CREATE TABLE IF NOT EXISTS purchase_lines (
		id TEXT PRIMARY KEY,
		purchase_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit TEXT,
		unit_price INTEGER NOT NULL,
		line_total INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_purchase_lines_purchase
		ON purchase_lines(purchase_id);

	-- Khata customers (cached due + version)
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		is_khata_active BOOLEAN DEFAULT FALSE,
		credit_limit INTEGER NOT NULL DEFAULT 0,
		current_due INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- One khata per phone per restaurant; customers without a phone
	-- are allowed to repeat.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_phone
		ON customers(restaurant_id, phone) WHERE phone != '';
	CREATE INDEX IF NOT EXISTS idx_customers_restaurant
		ON customers(restaurant_id);

	-- Khata transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS khata_transactions (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reference_id TEXT,
		payment_method TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_khata_tx_customer
		ON khata_transactions(customer_id, created_at DESC);

	-- Staff and attendance
	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT,
		phone TEXT,
		base_salary INTEGER NOT NULL DEFAULT 0,
		salary_type TEXT NOT NULL DEFAULT 'monthly',
		status TEXT NOT NULL DEFAULT 'active',
		joining_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_staff_restaurant
		ON staff(restaurant_id);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(staff_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_staff_date
		ON attendance(staff_id, date);

	-- Payroll (cached monthly aggregate, one row per staff+month)
	CREATE TABLE IF NOT EXISTS payroll (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		month TEXT NOT NULL,
		base_salary_snapshot INTEGER NOT NULL,
		present_days INTEGER NOT NULL DEFAULT 0,
		absent_days INTEGER NOT NULL DEFAULT 0,
		half_days INTEGER NOT NULL DEFAULT 0,
		leave_days INTEGER NOT NULL DEFAULT 0,
		advance_deductions INTEGER NOT NULL DEFAULT 0,
		final_amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		paid_at TEXT,
		generated_at TEXT NOT NULL,
		UNIQUE(staff_id, month)
	);

	-- Advances (append-only)
	CREATE TABLE IF NOT EXISTS advances (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL,
		advance_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_advances_staff
		ON advances(staff_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// fixedScale is the decimal precision of INTEGER amount columns.
const fixedScale = 4

// toFixed converts an Amount to its fixed-point column value.
func toFixed(a ledger.Amount) int64 {
	return a.Value.Shift(fixedScale).Round(0).IntPart()
}

// fromFixed converts a fixed-point column value back to an Amount.
func fromFixed(v int64) ledger.Amount {
	return ledger.Amount{Value: decimal.New(v, -fixedScale)}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// storeErr tags a driver failure so callers can classify it with
// errors.Is(err, ledger.ErrStorageUnavailable).
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ledger.ErrStorageUnavailable, err))
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"order_lines", "orders", "menu_items",
		"stock_movements", "purchase_lines", "purchases", "inventory_items",
		"khata_transactions", "customers",
		"advances", "payroll", "attendance", "staff",
	}
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}
