package cart

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mishafoods/storefront-backend/internal/catalog"
	"github.com/mishafoods/storefront-backend/internal/pricing"
	pkgerrors "github.com/mishafoods/storefront-backend/pkg/errors"
	"github.com/mishafoods/storefront-backend/pkg/logger"
)

// ClampHook is invoked when a requested quantity was clamped into bounds.
// Whether callers want to hear about clamps is a policy decision, so the
// hook is optional; the default is silent clamping.
type ClampHook func(id string, requested, applied int)

// StoreParams groups the dependencies of a Store.
type StoreParams struct {
	Catalog catalog.Lookup
	Policy  *pricing.Policy
	Region  pricing.Region
	Logger  *logger.Logger
	Now     func() time.Time
	OnClamp ClampHook
}

// Store owns the in-memory cart. All operations are synchronous and atomic
// with respect to each other; cross-context agreement is the synchronizer's
// job, not the store's.
type Store struct {
	mu      sync.Mutex
	items   []Item
	catalog catalog.Lookup
	policy  *pricing.Policy
	region  pricing.Region
	logg    *logger.Logger
	now     func() time.Time
	onClamp ClampHook
}

// NewStore builds an empty cart store.
func NewStore(params StoreParams) (*Store, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog lookup is required")
	}
	if params.Policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricing policy is required")
	}
	if params.Region == "" {
		params.Region = pricing.RegionNairobi
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Store{
		catalog: params.Catalog,
		policy:  params.Policy,
		region:  params.Region,
		logg:    params.Logger,
		now:     params.Now,
		onClamp: params.OnClamp,
	}, nil
}

// AddItem adds a product by id. With a nil quantity an existing line is
// incremented and a new line starts at one; an explicit quantity replaces
// the line's quantity (clamped). Unknown ids are a logged no-op and return
// false: the storefront cannot add what the catalog does not have.
func (s *Store) AddItem(ctx context.Context, id string, quantity *int) bool {
	product, ok := s.catalog.GetByID(id)
	if !ok {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithProductID(ctx, id), "cart.add unknown product")
		}
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		next := s.items[i].Quantity + 1
		if quantity != nil {
			next = *quantity
		}
		s.items[i].Quantity = s.clamp(id, next)
		s.items[i].LastUpdated = now
		return true
	}

	initial := 1
	if quantity != nil {
		initial = *quantity
	}
	s.items = append(s.items, Item{
		Product:     product,
		Quantity:    s.clamp(id, initial),
		AddedAt:     now,
		LastUpdated: now,
	})
	return true
}

// UpdateQuantity sets a line's quantity; anything below one removes the
// line. Returns false when the id is not in the cart.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) bool {
	if quantity < MinQuantity {
		return s.RemoveItem(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].Quantity = s.clamp(id, quantity)
		s.items[i].LastUpdated = s.now()
		return true
	}
	return false
}

// RemoveItem deletes a line; removing an absent id is a no-op.
func (s *Store) RemoveItem(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// MergeItems folds hydrated lines into the cart. Duplicate ids keep the
// larger quantity, never the sum, so merging a backup with a live cart
// cannot double-count. Returns the number of incoming lines applied.
func (s *Store) MergeItems(ctx context.Context, incoming []Item) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	merged := 0
	for _, in := range incoming {
		in.Quantity = s.clamp(in.ID, in.Quantity)
		found := false
		for i := range s.items {
			if s.items[i].ID != in.ID {
				continue
			}
			if in.Quantity > s.items[i].Quantity {
				s.items[i].Quantity = in.Quantity
			}
			s.items[i].LastUpdated = now
			found = true
			break
		}
		if !found {
			if in.AddedAt.IsZero() {
				in.AddedAt = now
			}
			in.LastUpdated = now
			s.items = append(s.items, in)
		}
		merged++
	}
	return merged
}

// Replace swaps the whole cart for freshly loaded state.
func (s *Store) Replace(ctx context.Context, items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Item(nil), items...)
}

// Items returns a copy of the cart in display order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

// IsInCart reports whether the id has a line.
func (s *Store) IsInCart(id string) bool {
	return s.QuantityOf(id) > 0
}

// QuantityOf returns the line quantity, or zero when absent.
func (s *Store) QuantityOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item.Quantity
		}
	}
	return 0
}

// Len reports the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Summary recomputes the order summary from current state.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary Summary
	subtotal := decimal.Zero
	for _, item := range s.items {
		summary.TotalItems += item.Quantity
		subtotal = subtotal.Add(item.Total())
	}

	summary.Subtotal = subtotal
	summary.DiscountPercent = s.policy.DiscountPercent(subtotal)
	summary.DiscountAmount = subtotal.
		Mul(decimal.NewFromInt(int64(summary.DiscountPercent))).
		Div(decimal.NewFromInt(100))
	summary.DiscountedSubtotal = subtotal.Sub(summary.DiscountAmount)
	summary.DeliveryFee = s.policy.DeliveryFee(summary.DiscountedSubtotal, s.region, false)
	summary.FinalTotal = summary.DiscountedSubtotal.Add(summary.DeliveryFee)
	return summary
}

// Stats is the storefront's cart statistics block.
type Stats struct {
	TotalItems            int        `json:"totalItems"`
	TotalPrice            float64    `json:"totalPrice"`
	ItemCount             int        `json:"itemCount"`
	Categories            []string   `json:"categories"`
	BulkDiscountEligible  bool       `json:"bulkDiscountEligible"`
	EstimatedDeliveryDays int        `json:"estimatedDeliveryDays"`
	LastSavedAt           *time.Time `json:"lastSavedAt,omitempty"`
}

// Stats summarizes the cart for display: distinct categories, bulk
// discount eligibility, and a rough delivery estimate by order size.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{ItemCount: len(s.items)}
	subtotal := decimal.Zero
	seen := map[catalog.Category]struct{}{}
	for _, item := range s.items {
		stats.TotalItems += item.Quantity
		subtotal = subtotal.Add(item.Total())
		if _, ok := seen[item.Category]; !ok {
			seen[item.Category] = struct{}{}
			stats.Categories = append(stats.Categories, string(item.Category))
		}
	}
	stats.TotalPrice = subtotal.InexactFloat64()

	lowest := s.policy.LowestTierThreshold()
	stats.BulkDiscountEligible = !lowest.IsZero() && subtotal.GreaterThanOrEqual(lowest)

	switch {
	case stats.TotalItems > 10:
		stats.EstimatedDeliveryDays = 3
	case stats.TotalItems > 5:
		stats.EstimatedDeliveryDays = 2
	default:
		stats.EstimatedDeliveryDays = 1
	}
	return stats
}

func (s *Store) clamp(id string, requested int) int {
	applied := clampQuantity(requested)
	if applied != requested && s.onClamp != nil {
		s.onClamp(id, requested, applied)
	}
	return applied
}
