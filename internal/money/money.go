package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for every amount. CLP has no
// minor unit below the peso so all intermediate results are truncated to whole
// pesos.
const Places int32 = 0

// VATRate is the flat IVA rate included in every catalog price.
var VATRate = decimal.RequireFromString("0.19")

var vatFactor = decimal.NewFromInt(1).Add(VATRate)

// Money is a fixed-point amount truncated to Places after every operation.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{d: decimal.Zero}

// FromInt builds an amount from an integer number of pesos.
func FromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// FromDecimal truncates d to Places.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Truncate(Places)}
}

// Parse reads an amount from its textual form (e.g. a NUMERIC column cast to text).
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Int64 returns the integer part of the amount.
func (m Money) Int64() int64 { return m.d.IntPart() }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// Add returns m + o.
func (m Money) Add(o Money) Money { return FromDecimal(m.d.Add(o.d)) }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return FromDecimal(m.d.Sub(o.d)) }

// Times multiplies by a quantity.
func (m Money) Times(qty int) Money {
	return FromDecimal(m.d.Mul(decimal.NewFromInt(int64(qty))))
}

// Rate returns the share of m given by rate, truncated.
func (m Money) Rate(rate decimal.Decimal) Money {
	return FromDecimal(m.d.Mul(rate))
}

// ApplyDiscount returns m * (1 - rate), truncated.
func (m Money) ApplyDiscount(rate decimal.Decimal) Money {
	return FromDecimal(m.d.Mul(decimal.NewFromInt(1).Sub(rate)))
}

// ExcludeVAT strips the included IVA: m / 1.19, truncated.
func (m Money) ExcludeVAT() Money {
	// Whole-peso inputs never land within 1e-8 of the next integer (fraction is k/119).
	return FromDecimal(m.d.DivRound(vatFactor, Places+8))
}

// Cmp compares two amounts.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// String renders the plain decimal value.
func (m Money) String() string { return m.d.StringFixed(Places) }

// MarshalJSON encodes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*m = Zero
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// FormatCLP renders the amount the way receipts show it: "$1.190", "-$8.330".
func (m Money) FormatCLP() string {
	v := m.Int64()
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := fmt.Sprintf("%d", v)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}
