// Package checkout formats a cart into the WhatsApp order handoff. It is
// pure formatting over the engine's computed state; it never recomputes
// prices itself.
package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mishafoods/storefront-backend/internal/cart"
	pkgerrors "github.com/mishafoods/storefront-backend/pkg/errors"
	"github.com/mishafoods/storefront-backend/pkg/money"
)

// Handoff is the checkout payload handed back to the storefront.
type Handoff struct {
	Message string `json:"message"`
	Link    string `json:"link"`
	Number  string `json:"number"`
}

// Builder renders order messages for one WhatsApp number.
type Builder struct {
	number string
}

// NewBuilder validates the destination number. Only digits survive into
// the wa.me link, so the number must contain some.
func NewBuilder(number string) (*Builder, error) {
	if digitsOnly(number) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "whatsapp number must contain digits")
	}
	return &Builder{number: number}, nil
}

// Build renders the order message and wa.me link for the given cart.
// An empty cart has nothing to order.
func (b *Builder) Build(items []cart.Item, summary cart.Summary) (Handoff, error) {
	if len(items) == 0 {
		return Handoff{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var sb strings.Builder
	sb.WriteString("Hello Misha Foodstuffs!\n\nI would like to order:\n\n")
	for _, item := range items {
		if item.Size != "" {
			fmt.Fprintf(&sb, "%s (%s) x%d\n", item.Name, item.Size, item.Quantity)
		} else {
			fmt.Fprintf(&sb, "%s x%d\n", item.Name, item.Quantity)
		}
	}

	fmt.Fprintf(&sb, "\nSubtotal: %s\n", money.Format(summary.Subtotal))
	if summary.DiscountPercent > 0 {
		fmt.Fprintf(&sb, "Bulk discount (%d%%): -%s\n", summary.DiscountPercent, money.Format(summary.DiscountAmount))
	}
	if summary.DeliveryFee.IsZero() {
		sb.WriteString("Delivery: FREE\n")
	} else {
		fmt.Fprintf(&sb, "Delivery: %s\n", money.Format(summary.DeliveryFee))
	}
	fmt.Fprintf(&sb, "Total: %s\n", money.Format(summary.FinalTotal))
	sb.WriteString("\nPlease confirm availability and delivery details.")

	message := sb.String()
	return Handoff{
		Message: message,
		Link:    fmt.Sprintf("https://wa.me/%s?text=%s", digitsOnly(b.number), url.QueryEscape(message)),
		Number:  b.number,
	}, nil
}

func digitsOnly(number string) string {
	var sb strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
