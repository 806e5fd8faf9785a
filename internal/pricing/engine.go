package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/ecofor-market/internal/money"
)

// Mode selects which final-total formula applies.
type Mode string

const (
	// ModeCheckout keeps IVA included: final = gross - discount.
	ModeCheckout Mode = "checkout"
	// ModeInvoice strips IVA before discounting; the result is VAT exempt.
	ModeInvoice Mode = "invoice"
	// ModeQuote is informational and never discounted.
	ModeQuote Mode = "quote"
)

// Item describes a line item used for pricing calculation.
type Item struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Qty       int         `json:"quantity"`
	UnitPrice money.Money `json:"unitPrice"`
}

// Line is the priced breakdown of a single Item.
type Line struct {
	Item
	Gross        money.Money     `json:"gross"`
	DiscountRate decimal.Decimal `json:"discountRate"`
	Discount     money.Money     `json:"discount"`
	UnitExVAT    money.Money     `json:"unitExVat"`
	ExVAT        money.Money     `json:"exVat"`
	Final        money.Money     `json:"final"`
}

// Summary aggregates computed pricing components.
type Summary struct {
	Mode     Mode        `json:"mode"`
	Business bool        `json:"business"`
	Lines    []Line      `json:"lines"`
	Gross    money.Money `json:"totalBruto"`
	Discount money.Money `json:"totalDescuento"`
	ExVAT    money.Money `json:"totalSinIva"`
	Final    money.Money `json:"totalFinal"`
}

// PriceCart prices a whole cart: business accounts get the VAT-exclusive
// invoice formula, everybody else the VAT-inclusive checkout formula.
func PriceCart(items []Item, business bool) Summary {
	if business {
		return Price(items, ModeInvoice, true)
	}
	return Price(items, ModeCheckout, false)
}

// Price calculates line and aggregate totals. Items with a non-positive
// quantity are skipped.
func Price(items []Item, mode Mode, business bool) Summary {
	summary := Summary{
		Mode:     mode,
		Business: business,
		Lines:    make([]Line, 0, len(items)),
		Gross:    money.Zero,
		Discount: money.Zero,
		ExVAT:    money.Zero,
		Final:    money.Zero,
	}
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		line := priceLine(it, mode, business)
		summary.Lines = append(summary.Lines, line)
		summary.Gross = summary.Gross.Add(line.Gross)
		summary.Discount = summary.Discount.Add(line.Discount)
		summary.ExVAT = summary.ExVAT.Add(line.ExVAT)
		summary.Final = summary.Final.Add(line.Final)
	}
	return summary
}

func priceLine(it Item, mode Mode, business bool) Line {
	rate := RateFor(business, it.Qty)
	if mode == ModeQuote {
		rate = decimal.Zero
	}
	gross := it.UnitPrice.Times(it.Qty)
	unitExVAT := it.UnitPrice.ExcludeVAT()
	line := Line{
		Item:         it,
		Gross:        gross,
		DiscountRate: rate,
		Discount:     gross.Rate(rate),
		UnitExVAT:    unitExVAT,
		ExVAT:        unitExVAT.Times(it.Qty),
	}
	switch mode {
	case ModeInvoice:
		line.Final = unitExVAT.ApplyDiscount(rate).Times(it.Qty)
	default:
		line.Final = gross.Sub(line.Discount)
	}
	return line
}
