/*
pricing.go - Line request resolution and the portion pricing rule

PURPOSE:
  Turns caller line requests into priced Line records before anything is
  written. Pricing resolves ONCE here and the result is snapshotted into
  price_at_time; later catalog price changes never retroactively reprice
  an order.

PRICING RULE (catalog lines):
  1. explicit override price, if supplied
  2. else half price, if portion == half and the catalog item defines one
  3. else full price

CUSTOM LINES:
  Carry their own name and price; both are required.
*/
package order

import (
	"context"
	"fmt"

	"github.com/warp/pos-engine/ledger"
)

// Catalog resolves menu item ids to names and prices. It is owned by menu
// management; this package only consumes the lookup.
type Catalog interface {
	// Resolve returns nil (no error) when the item does not exist.
	Resolve(ctx context.Context, itemID string) (*CatalogItem, error)
}

// CatalogItem is the menu-side view of a sellable item.
type CatalogItem struct {
	ID        string
	Name      string
	PriceFull ledger.Amount
	PriceHalf *ledger.Amount // nil when the item has no half portion
}

// LineRequest is one requested order line. Either ItemID (catalog line,
// priced by the rule above) or CustomName+Price (custom line) is set.
type LineRequest struct {
	ItemID        string
	CustomName    string
	Quantity      int64
	Portion       Portion
	OverridePrice *ledger.Amount // catalog lines only
	Price         *ledger.Amount // custom lines only
	Note          string
}

// ResolveLines validates and prices all requests, returning the resolved
// lines and their total. Nothing is persisted here; callers run this
// BEFORE any destructive write so a bad request can never leave an order
// half-swapped.
func ResolveLines(ctx context.Context, catalog Catalog, reqs []LineRequest) ([]Line, ledger.Amount, error) {
	if len(reqs) == 0 {
		return nil, ledger.Zero, fmt.Errorf("%w: order has no lines", ledger.ErrInvalidInput)
	}

	lines := make([]Line, 0, len(reqs))
	for i, req := range reqs {
		line, err := resolveLine(ctx, catalog, req)
		if err != nil {
			return nil, ledger.Zero, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}

	return lines, TotalOf(lines), nil
}

func resolveLine(ctx context.Context, catalog Catalog, req LineRequest) (Line, error) {
	if req.Quantity <= 0 {
		return Line{}, fmt.Errorf("%w: quantity must be positive", ledger.ErrInvalidInput)
	}

	portion := req.Portion
	if portion == "" {
		portion = PortionFull
	}
	if !portion.Valid() {
		return Line{}, fmt.Errorf("%w: unknown portion %q", ledger.ErrInvalidInput, req.Portion)
	}

	if req.ItemID != "" && req.CustomName != "" {
		return Line{}, fmt.Errorf("%w: line is both catalog and custom", ledger.ErrInvalidInput)
	}

	// Custom line: name and price are mandatory.
	if req.ItemID == "" {
		if req.CustomName == "" {
			return Line{}, fmt.Errorf("%w: custom line needs a name", ledger.ErrInvalidInput)
		}
		if req.Price == nil || req.Price.IsNegative() {
			return Line{}, fmt.Errorf("%w: custom line %q needs a price", ledger.ErrInvalidInput, req.CustomName)
		}
		return Line{
			CustomName:  req.CustomName,
			Quantity:    req.Quantity,
			Portion:     portion,
			PriceAtTime: *req.Price,
			Note:        req.Note,
		}, nil
	}

	// Catalog line: look up the item, then apply the pricing rule.
	item, err := catalog.Resolve(ctx, req.ItemID)
	if err != nil {
		return Line{}, fmt.Errorf("resolve item %s: %w", req.ItemID, err)
	}
	if item == nil {
		return Line{}, fmt.Errorf("%w: catalog item %s", ledger.ErrNotFound, req.ItemID)
	}

	price := item.PriceFull
	switch {
	case req.OverridePrice != nil:
		if req.OverridePrice.IsNegative() {
			return Line{}, fmt.Errorf("%w: negative override price", ledger.ErrInvalidInput)
		}
		price = *req.OverridePrice
	case portion == PortionHalf && item.PriceHalf != nil:
		price = *item.PriceHalf
	}

	return Line{
		ItemID:      item.ID,
		Quantity:    req.Quantity,
		Portion:     portion,
		PriceAtTime: price,
		Note:        req.Note,
	}, nil
}
