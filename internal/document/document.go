// Package document builds the structured data printed on invoices and quotes.
// Layout and typesetting belong to the renderer; values here are already
// formatted for display.
package document

import (
	"time"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/money"
)

// NameWidth is the maximum number of characters of a product name printed on a line.
const NameWidth = 40

// Document kinds.
const (
	KindInvoice = "factura"
	KindQuote   = "cotizacion"
)

const dateLayout = "02-01-2006"

// Customer identifies who the document is issued to.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Rut   string `json:"rut,omitempty"`
}

// Line is one printed row.
type Line struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Discount  string `json:"discount,omitempty"`
	Subtotal  string `json:"subtotal"`
}

// Total is a labelled amount printed below the lines.
type Total struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// Document is the renderer input.
type Document struct {
	Kind     string   `json:"kind"`
	Title    string   `json:"title"`
	Number   int64    `json:"number"`
	Date     string   `json:"date"`
	Issuer   string   `json:"issuer"`
	Customer Customer `json:"customer"`
	Lines    []Line   `json:"lines"`
	Totals   []Total  `json:"totals"`
}

// New starts a document for acct.
func New(kind, title string, number int64, issued time.Time, acct account.Account) Document {
	return Document{
		Kind:   kind,
		Title:  title,
		Number: number,
		Date:   FormatDate(issued),
		Issuer: "Ecofor Market",
		Customer: Customer{
			Name:  acct.DisplayName(),
			Email: acct.Email,
			Rut:   acct.Rut,
		},
		Lines: []Line{},
	}
}

// AddLine appends a row. A zero discount is left blank.
func (d *Document) AddLine(name string, qty int, unit, discount, subtotal money.Money) {
	line := Line{
		Name:      TruncateName(name),
		Quantity:  qty,
		UnitPrice: unit.FormatCLP(),
		Subtotal:  subtotal.FormatCLP(),
	}
	if !discount.IsZero() {
		line.Discount = "-" + discount.FormatCLP()
	}
	d.Lines = append(d.Lines, line)
}

// AddTotal appends a labelled amount.
func (d *Document) AddTotal(label string, amount money.Money) {
	d.Totals = append(d.Totals, Total{Label: label, Amount: amount.FormatCLP()})
}

// TruncateName cuts name to NameWidth characters.
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= NameWidth {
		return name
	}
	return string(runes[:NameWidth])
}

// FormatDate renders t as dd-mm-yyyy.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
