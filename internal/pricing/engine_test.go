package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/money"
)

func TestRateForRetailIsAlwaysZero(t *testing.T) {
	for _, q := range []int{0, 1, 99, 100, 499, 500, 100000} {
		require.True(t, RateFor(false, q).IsZero(), "quantity %d", q)
	}
}

func TestRateForBusinessBoundaries(t *testing.T) {
	cases := map[int]string{
		0:      "0",
		1:      "0",
		99:     "0",
		100:    "0.07",
		499:    "0.07",
		500:    "0.12",
		100000: "0.12",
	}
	for q, want := range cases {
		got := RateFor(true, q)
		require.True(t, got.Equal(decimal.RequireFromString(want)), "quantity %d: got %s want %s", q, got, want)
	}
}

func TestPriceCartBusinessTierOne(t *testing.T) {
	summary := PriceCart([]Item{{ProductID: 1, Qty: 100, UnitPrice: money.FromInt(1190)}}, true)
	require.Equal(t, ModeInvoice, summary.Mode)
	require.Len(t, summary.Lines, 1)
	require.Equal(t, int64(1000), summary.Lines[0].UnitExVAT.Int64())
	require.Equal(t, int64(119000), summary.Gross.Int64())
	require.Equal(t, int64(8330), summary.Discount.Int64())
	require.Equal(t, int64(100000), summary.ExVAT.Int64())
	require.Equal(t, int64(93000), summary.Final.Int64())
}

func TestPriceCartBusinessBelowThreshold(t *testing.T) {
	summary := PriceCart([]Item{{ProductID: 1, Qty: 50, UnitPrice: money.FromInt(1190)}}, true)
	require.True(t, summary.Discount.IsZero())
	require.Equal(t, int64(50000), summary.Final.Int64())
}

func TestPriceCartRetailKeepsVAT(t *testing.T) {
	summary := PriceCart([]Item{{ProductID: 1, Qty: 3, UnitPrice: money.FromInt(1190)}}, false)
	require.Equal(t, ModeCheckout, summary.Mode)
	require.Equal(t, int64(3570), summary.Gross.Int64())
	require.True(t, summary.Discount.IsZero())
	require.Equal(t, int64(3570), summary.Final.Int64())
}

func TestCheckoutModeDiscountsBusinessWithVAT(t *testing.T) {
	summary := Price([]Item{{ProductID: 1, Qty: 500, UnitPrice: money.FromInt(999)}}, ModeCheckout, true)
	// 499500 * 0.12 = 59940
	require.Equal(t, int64(499500), summary.Gross.Int64())
	require.Equal(t, int64(59940), summary.Discount.Int64())
	require.Equal(t, int64(439560), summary.Final.Int64())
}

func TestInvoiceModeTruncatesEachStep(t *testing.T) {
	// 999/1.19 = 839.49 -> 839; 839*0.93 = 780.27 -> 780; 780*150 = 117000
	summary := Price([]Item{{ProductID: 1, Qty: 150, UnitPrice: money.FromInt(999)}}, ModeInvoice, true)
	require.Equal(t, int64(117000), summary.Final.Int64())
	require.Equal(t, int64(839*150), summary.ExVAT.Int64())
}

func TestQuoteModeNeverDiscounts(t *testing.T) {
	summary := Price([]Item{{ProductID: 1, Qty: 600, UnitPrice: money.FromInt(1000)}}, ModeQuote, true)
	require.True(t, summary.Discount.IsZero())
	require.Equal(t, summary.Gross.Int64(), summary.Final.Int64())
}

func TestGrossIsIndependentOfDiscount(t *testing.T) {
	items := []Item{
		{ProductID: 1, Qty: 7, UnitPrice: money.FromInt(1190)},
		{ProductID: 2, Qty: 120, UnitPrice: money.FromInt(2590)},
		{ProductID: 3, Qty: 650, UnitPrice: money.FromInt(333)},
	}
	var want int64
	for _, it := range items {
		want += it.UnitPrice.Int64() * int64(it.Qty)
	}
	for _, business := range []bool{true, false} {
		summary := PriceCart(items, business)
		require.Equal(t, want, summary.Gross.Int64())
		require.LessOrEqual(t, summary.Final.Cmp(summary.Gross), 0)
		require.LessOrEqual(t, summary.ExVAT.Cmp(summary.Gross), 0)
	}
}

func TestPriceSkipsEmptyLines(t *testing.T) {
	summary := Price([]Item{{ProductID: 1, Qty: 0, UnitPrice: money.FromInt(1000)}}, ModeCheckout, false)
	require.Empty(t, summary.Lines)
	require.True(t, summary.Final.IsZero())
}
