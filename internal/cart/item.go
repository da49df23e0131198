// Package cart implements the cart state engine: the authoritative line
// item collection, its persistence with schema migration and backup
// recovery, cross-context reconciliation, and the export/import snapshot
// format.
package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mishafoods/storefront-backend/internal/catalog"
)

// Quantity bounds for a single line. Out-of-range values are clamped,
// never rejected.
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Item is one cart line: a hydrated catalog product plus quantity and
// bookkeeping timestamps. At most one line exists per product id.
type Item struct {
	catalog.Product

	Quantity    int
	AddedAt     time.Time
	LastUpdated time.Time
}

// Total is the line total (price x quantity).
func (i Item) Total() decimal.Decimal {
	return i.Amount.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func clampQuantity(quantity int) int {
	if quantity < MinQuantity {
		return MinQuantity
	}
	if quantity > MaxQuantity {
		return MaxQuantity
	}
	return quantity
}

// Summary is the derived order summary, recomputed from current state on
// every call and never cached.
type Summary struct {
	TotalItems         int             `json:"totalItems"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountPercent    int             `json:"discountPercent"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountedSubtotal decimal.Decimal `json:"discountedSubtotal"`
	DeliveryFee        decimal.Decimal `json:"deliveryFee"`
	FinalTotal         decimal.Decimal `json:"finalTotal"`
}

// QuantityChange records one line whose quantity differs between two carts.
type QuantityChange struct {
	ID          string
	OldQuantity int
	NewQuantity int
}

// DiffResult partitions the lines of two carts by id and quantity.
type DiffResult struct {
	Added   []Item
	Removed []Item
	Changed []QuantityChange
	Same    []Item
}

// Diff compares two carts. Lines present only in b are Added, only in a
// are Removed; shared ids land in Changed or Same by quantity.
func Diff(a, b []Item) DiffResult {
	var result DiffResult

	byID := make(map[string]Item, len(a))
	for _, item := range a {
		byID[item.ID] = item
	}

	seen := make(map[string]struct{}, len(b))
	for _, item := range b {
		seen[item.ID] = struct{}{}
		old, ok := byID[item.ID]
		switch {
		case !ok:
			result.Added = append(result.Added, item)
		case old.Quantity != item.Quantity:
			result.Changed = append(result.Changed, QuantityChange{
				ID:          item.ID,
				OldQuantity: old.Quantity,
				NewQuantity: item.Quantity,
			})
		default:
			result.Same = append(result.Same, item)
		}
	}

	for _, item := range a {
		if _, ok := seen[item.ID]; !ok {
			result.Removed = append(result.Removed, item)
		}
	}

	return result
}
