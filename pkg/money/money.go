// Package money is the single boundary between display price strings
// ("KES 1,250.00") and the numeric amounts the cart engine computes with.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse extracts the numeric amount from a currency-formatted string.
// Every character that is not a digit or a decimal point is stripped, so
// "KES 1,250.00", "1250" and "Ksh1,250.00/=" all parse to 1250. Strings
// with no usable digits parse to zero.
func Parse(price string) decimal.Decimal {
	var b strings.Builder
	seenDot := false
	for _, r := range price {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" || clean == "." {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Format renders an amount as a display price with thousands separators,
// e.g. 1250 -> "KES 1,250.00".
func Format(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%sKES %s.%s", sign, strings.Join(groups, ","), fracPart)
}
