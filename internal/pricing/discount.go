package pricing

import "github.com/shopspring/decimal"

// Quantity thresholds for business volume discounts.
const (
	TierOneQuantity = 100
	TierTwoQuantity = 500
)

var (
	rateNone    = decimal.Zero
	rateTierOne = decimal.RequireFromString("0.07")
	rateTierTwo = decimal.RequireFromString("0.12")
)

// RateFor returns the volume discount for a single line. Retail customers are
// never discounted.
func RateFor(business bool, quantity int) decimal.Decimal {
	if !business {
		return rateNone
	}
	switch {
	case quantity >= TierTwoQuantity:
		return rateTierTwo
	case quantity >= TierOneQuantity:
		return rateTierOne
	default:
		return rateNone
	}
}
