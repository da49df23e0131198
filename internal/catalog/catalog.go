// Package catalog is the read-only product lookup the cart engine hydrates
// line items from. The catalog is loaded once at startup and never mutated.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/mishafoods/storefront-backend/pkg/money"
)

// Category is one of the fixed storefront sections.
type Category string

const (
	CategoryKimchi     Category = "kimchi"
	CategoryRamen      Category = "ramen"
	CategorySauces     Category = "sauces"
	CategorySnacks     Category = "snacks"
	CategoryBeverages  Category = "beverages"
	CategoryEssentials Category = "essentials"
	CategorySeafood    Category = "seafood"
	CategoryGrains     Category = "grains"
	CategoryFrozen     Category = "frozen"
	CategoryHealth     Category = "health"
	CategoryDesserts   Category = "desserts"
	CategorySpecialty  Category = "specialty"
)

var categoryNames = map[Category]string{
	CategoryKimchi:     "Kimchi & Pickled Foods",
	CategoryRamen:      "Ramen & Instant Noodles",
	CategorySauces:     "Sauces, Pastes & Seasonings",
	CategorySnacks:     "Korean Snacks & Cookies",
	CategoryBeverages:  "Beverages & Alcohol",
	CategoryEssentials: "Cooking Essentials",
	CategorySeafood:    "Dried Seafood & Products",
	CategoryGrains:     "Rice, Grains & Noodles",
	CategoryFrozen:     "Frozen Foods & Dumplings",
	CategoryHealth:     "Health & Wellness",
	CategoryDesserts:   "Desserts & Sweets",
	CategorySpecialty:  "Specialty & Gourmet",
}

// Valid reports whether the category is a known section.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Display returns the storefront label for the category.
func (c Category) Display() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// Product is an immutable catalog record. Price is the display string; the
// numeric Amount is parsed once at load so the engine never re-parses it.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Price       string   `json:"price"`
	Size        string   `json:"size"`
	Featured    bool     `json:"featured,omitempty"`
	Description string   `json:"description,omitempty"`

	Amount decimal.Decimal `json:"-"`
}

// Lookup resolves product ids. Implementations are read-only and total
// over the id space: any id either resolves or reports not found.
type Lookup interface {
	GetByID(id string) (Product, bool)
}

// Catalog is the static in-memory catalog backing Lookup.
type Catalog struct {
	products []Product
	byID     map[string]Product
}

// New builds a catalog, validating ids and categories and parsing each
// price into its numeric amount.
func New(products []Product) (*Catalog, error) {
	byID := make(map[string]Product, len(products))
	out := make([]Product, 0, len(products))
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product at index %d has no id", i)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if !p.Category.Valid() {
			return nil, fmt.Errorf("product %q has unknown category %q", p.ID, p.Category)
		}
		p.Amount = money.Parse(p.Price)
		byID[p.ID] = p
		out = append(out, p)
	}
	return &Catalog{products: out, byID: byID}, nil
}

// LoadFile reads a JSON product list from disk.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(products)
}

// GetByID resolves a product id.
func (c *Catalog) GetByID(id string) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// List returns the catalog in its declared order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len reports the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
