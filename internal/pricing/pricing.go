// Package pricing holds the order pricing policy: the bulk discount tier
// table and the regional delivery fee schedule. All functions are pure and
// total; the tables are fixed at construction.
package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mishafoods/storefront-backend/pkg/config"
)

// Region keys the delivery fee schedule.
type Region string

const (
	RegionNairobi Region = "nairobi"
	RegionOther   Region = "other"
)

// ParseRegion normalizes a region name, defaulting to nairobi.
func ParseRegion(value string) Region {
	if value == string(RegionOther) {
		return RegionOther
	}
	return RegionNairobi
}

// Tier is one bulk discount rule: orders at or above MinAmount earn
// Percent off. The highest matching tier applies; tiers never stack.
type Tier struct {
	MinAmount decimal.Decimal
	Percent   int
}

// Fees is the delivery schedule for one region.
type Fees struct {
	Standard      decimal.Decimal
	Express       decimal.Decimal
	FreeThreshold decimal.Decimal
}

// Policy answers discount and delivery fee questions for the cart engine.
type Policy struct {
	tiers []Tier
	fees  map[Region]Fees
}

// New builds a policy. Tiers must have strictly decreasing thresholds once
// sorted, so that exactly one tier can match any subtotal.
func New(tiers []Tier, fees map[Region]Fees) (*Policy, error) {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinAmount.GreaterThan(sorted[j].MinAmount)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinAmount.Equal(sorted[i-1].MinAmount) {
			return nil, fmt.Errorf("duplicate tier threshold %s", sorted[i].MinAmount)
		}
	}
	if len(fees) == 0 {
		return nil, fmt.Errorf("at least one delivery region is required")
	}
	return &Policy{tiers: sorted, fees: fees}, nil
}

// FromConfig builds the policy from the environment-supplied tables.
func FromConfig(pricingCfg config.PricingConfig, deliveryCfg config.DeliveryConfig) (*Policy, error) {
	raw, err := pricingCfg.ParseTiers()
	if err != nil {
		return nil, err
	}
	tiers := make([]Tier, 0, len(raw))
	for _, t := range raw {
		tiers = append(tiers, Tier{
			MinAmount: decimal.NewFromFloat(t.MinAmount),
			Percent:   t.Percent,
		})
	}
	fees := map[Region]Fees{
		RegionNairobi: {
			Standard:      decimal.NewFromFloat(deliveryCfg.NairobiStandard),
			Express:       decimal.NewFromFloat(deliveryCfg.NairobiExpress),
			FreeThreshold: decimal.NewFromFloat(deliveryCfg.NairobiFreeThreshold),
		},
		RegionOther: {
			Standard:      decimal.NewFromFloat(deliveryCfg.OtherStandard),
			Express:       decimal.NewFromFloat(deliveryCfg.OtherExpress),
			FreeThreshold: decimal.NewFromFloat(deliveryCfg.OtherFreeThreshold),
		},
	}
	return New(tiers, fees)
}

// DiscountPercent returns the bulk discount for a subtotal: the percent of
// the highest tier whose threshold the subtotal meets, or 0. Negative
// subtotals earn nothing.
func (p *Policy) DiscountPercent(subtotal decimal.Decimal) int {
	if subtotal.IsNegative() {
		return 0
	}
	for _, tier := range p.tiers {
		if subtotal.GreaterThanOrEqual(tier.MinAmount) {
			return tier.Percent
		}
	}
	return 0
}

// IsFreeDelivery reports whether the amount clears the region's free
// delivery threshold.
func (p *Policy) IsFreeDelivery(amount decimal.Decimal, region Region) bool {
	return amount.GreaterThanOrEqual(p.regionFees(region).FreeThreshold)
}

// DeliveryFee returns the flat fee for the region, zero when delivery is
// free, with the express surcharge schedule when express is set.
func (p *Policy) DeliveryFee(amount decimal.Decimal, region Region, express bool) decimal.Decimal {
	if p.IsFreeDelivery(amount, region) {
		return decimal.Zero
	}
	fees := p.regionFees(region)
	if express {
		return fees.Express
	}
	return fees.Standard
}

// LowestTierThreshold is the smallest subtotal that earns any discount,
// or zero when no tiers are configured.
func (p *Policy) LowestTierThreshold() decimal.Decimal {
	if len(p.tiers) == 0 {
		return decimal.Zero
	}
	return p.tiers[len(p.tiers)-1].MinAmount
}

func (p *Policy) regionFees(region Region) Fees {
	if fees, ok := p.fees[region]; ok {
		return fees
	}
	return p.fees[RegionNairobi]
}
