package domain

import "github.com/shopspring/decimal"

var (
	tierHighThreshold = decimal.NewFromInt(200)
	tierLowThreshold  = decimal.NewFromInt(100)
	tierHighRate      = decimal.RequireFromString("0.10")
	tierLowRate       = decimal.RequireFromString("0.05")
)

// DiscountRate maps an order subtotal to its discount rate:
// above 200 -> 0.10, above 100 -> 0.05, otherwise 0.
func DiscountRate(total decimal.Decimal) decimal.Decimal {
	switch {
	case total.GreaterThan(tierHighThreshold):
		return tierHighRate
	case total.GreaterThan(tierLowThreshold):
		return tierLowRate
	default:
		return decimal.Zero
	}
}

// ApplyDiscount sets each line's per-unit discount (unit price * rate) and
// returns the discounted order total (subtotal - subtotal * rate).
func ApplyDiscount(lines []OrderLine, subtotal decimal.Decimal) decimal.Decimal {
	rate := DiscountRate(subtotal)
	for i := range lines {
		lines[i].Discount = lines[i].UnitPrice.Mul(rate)
	}
	return subtotal.Sub(subtotal.Mul(rate))
}
