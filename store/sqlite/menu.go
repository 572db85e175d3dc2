/*
menu.go - Menu item storage and the pricing catalog lookup

The menu is ordinary CRUD state, not a ledger. Resolve adapts it to the
order.Catalog contract: nil (no error) for a missing or unavailable
item, so pricing reports a clean not-found instead of selling something
the kitchen cannot make.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/pos-engine/ledger"
	"github.com/warp/pos-engine/order"
)

// MenuItem is a sellable menu entry. PriceHalf is nil when the item has
// no half portion.
type MenuItem struct {
	ID           string
	RestaurantID string
	Name         string
	Category     string
	PriceFull    ledger.Amount
	PriceHalf    *ledger.Amount
	IsAvailable  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SaveMenuItem inserts or updates a menu item.
func (s *Store) SaveMenuItem(ctx context.Context, m *MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var priceHalf *int64
	if m.PriceHalf != nil {
		v := toFixed(*m.PriceHalf)
		priceHalf = &v
	}

	query := `
		INSERT INTO menu_items
		(id, restaurant_id, name, category, price_full, price_half, is_available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			price_full = excluded.price_full,
			price_half = excluded.price_half,
			is_available = excluded.is_available,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.RestaurantID, m.Name, nullString(m.Category),
		toFixed(m.PriceFull), priceHalf, m.IsAvailable, now, now,
	)
	if err != nil {
		return storeErr("save menu item", err)
	}
	return nil
}

// GetMenuItem returns a menu item, or nil when it does not exist.
func (s *Store) GetMenuItem(ctx context.Context, id string) (*MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getMenuItem(ctx, id)
}

func (s *Store) getMenuItem(ctx context.Context, id string) (*MenuItem, error) {
	var (
		m         MenuItem
		category  sql.NullString
		priceFull int64
		priceHalf sql.NullInt64
		createdAt string
		updatedAt string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, name, category, price_full, price_half, is_available, created_at, updated_at
		FROM menu_items WHERE id = ?`, id,
	).Scan(&m.ID, &m.RestaurantID, &m.Name, &category, &priceFull, &priceHalf, &m.IsAvailable, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get menu item", err)
	}

	m.Category = category.String
	m.PriceFull = fromFixed(priceFull)
	if priceHalf.Valid {
		half := fromFixed(priceHalf.Int64)
		m.PriceHalf = &half
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

// ListMenuItems returns a restaurant's menu, by name.
func (s *Store) ListMenuItems(ctx context.Context, restaurantID string) ([]MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, category, price_full, price_half, is_available, created_at, updated_at
		FROM menu_items WHERE restaurant_id = ? ORDER BY name`, restaurantID)
	if err != nil {
		return nil, storeErr("list menu items", err)
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var (
			m         MenuItem
			category  sql.NullString
			priceFull int64
			priceHalf sql.NullInt64
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &category, &priceFull, &priceHalf, &m.IsAvailable, &createdAt, &updatedAt); err != nil {
			return nil, storeErr("scan menu item", err)
		}
		m.Category = category.String
		m.PriceFull = fromFixed(priceFull)
		if priceHalf.Valid {
			half := fromFixed(priceHalf.Int64)
			m.PriceHalf = &half
		}
		m.CreatedAt = parseTime(createdAt)
		m.UpdatedAt = parseTime(updatedAt)
		items = append(items, m)
	}
	return items, rows.Err()
}

// DeleteMenuItem removes a menu item.
func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM menu_items WHERE id = ?", id); err != nil {
		return storeErr("delete menu item", err)
	}
	return nil
}

// Resolve implements order.Catalog. Unavailable items resolve to nil so
// they price the same as missing ones.
func (s *Store) Resolve(ctx context.Context, itemID string) (*order.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := s.getMenuItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.IsAvailable {
		return nil, nil
	}
	return &order.CatalogItem{
		ID:        m.ID,
		Name:      m.Name,
		PriceFull: m.PriceFull,
		PriceHalf: m.PriceHalf,
	}, nil
}
