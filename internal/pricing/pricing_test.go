package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mishafoods/storefront-backend/pkg/config"
)

func defaultPolicy(t *testing.T) *Policy {
	t.Helper()
	policy, err := FromConfig(
		config.PricingConfig{BulkTiers: "10000:5,25000:10,50000:15,100000:20"},
		config.DeliveryConfig{
			NairobiStandard: 300, NairobiExpress: 500, NairobiFreeThreshold: 2000,
			OtherStandard: 500, OtherExpress: 800, OtherFreeThreshold: 5000,
		},
	)
	if err != nil {
		t.Fatalf("build policy: %v", err)
	}
	return policy
}

func TestDiscountPercentTiers(t *testing.T) {
	t.Parallel()
	policy := defaultPolicy(t)

	tests := []struct {
		subtotal string
		want     int
	}{
		{"9999", 0},
		{"10000", 5},
		{"24999", 5},
		{"25000", 10},
		{"49999.99", 10},
		{"50000", 15},
		{"100000", 20},
		{"250000", 20},
		{"0", 0},
		{"-50", 0},
	}

	for _, tt := range tests {
		got := policy.DiscountPercent(decimal.RequireFromString(tt.subtotal))
		if got != tt.want {
			t.Fatalf("DiscountPercent(%s) = %d, want %d", tt.subtotal, got, tt.want)
		}
	}
}

func TestDeliveryFee(t *testing.T) {
	t.Parallel()
	policy := defaultPolicy(t)

	tests := []struct {
		amount  string
		region  Region
		express bool
		want    string
	}{
		{"1999.99", RegionNairobi, false, "300"},
		{"2000", RegionNairobi, false, "0"},
		{"1999.99", RegionNairobi, true, "500"},
		{"2000", RegionNairobi, true, "0"},
		{"4999", RegionOther, false, "500"},
		{"4999", RegionOther, true, "800"},
		{"5000", RegionOther, false, "0"},
	}

	for _, tt := range tests {
		got := policy.DeliveryFee(decimal.RequireFromString(tt.amount), tt.region, tt.express)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("DeliveryFee(%s, %s, %v) = %s, want %s", tt.amount, tt.region, tt.express, got, tt.want)
		}
	}
}

func TestIsFreeDeliveryBoundary(t *testing.T) {
	t.Parallel()
	policy := defaultPolicy(t)

	if policy.IsFreeDelivery(decimal.RequireFromString("1999.99"), RegionNairobi) {
		t.Fatal("1999.99 should not be free in nairobi")
	}
	if !policy.IsFreeDelivery(decimal.NewFromInt(2000), RegionNairobi) {
		t.Fatal("exactly 2000 should be free in nairobi")
	}
}

func TestNewRejectsDuplicateThresholds(t *testing.T) {
	t.Parallel()

	_, err := New(
		[]Tier{
			{MinAmount: decimal.NewFromInt(10000), Percent: 5},
			{MinAmount: decimal.NewFromInt(10000), Percent: 10},
		},
		map[Region]Fees{RegionNairobi: {}},
	)
	if err == nil {
		t.Fatal("expected duplicate threshold error")
	}
}

func TestUnknownRegionFallsBackToNairobi(t *testing.T) {
	t.Parallel()
	policy := defaultPolicy(t)

	fee := policy.DeliveryFee(decimal.NewFromInt(100), Region("mombasa"), false)
	if !fee.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected nairobi standard fee, got %s", fee)
	}

	if ParseRegion("other") != RegionOther || ParseRegion("anything") != RegionNairobi {
		t.Fatal("ParseRegion normalization broken")
	}
}

func TestLowestTierThreshold(t *testing.T) {
	t.Parallel()
	policy := defaultPolicy(t)
	if !policy.LowestTierThreshold().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected lowest threshold %s", policy.LowestTierThreshold())
	}
}
