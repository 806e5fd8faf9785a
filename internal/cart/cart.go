package cart

import (
	"encoding/json"
	"errors"
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/money"
	"github.com/noah-isme/ecofor-market/internal/pricing"
)

// ErrProductInactive is returned when adding a product that is not for sale.
var ErrProductInactive = errors.New("product is not available")

// Line is one product entry of a cart. UnitPrice is captured on the first add.
type Line struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unitPrice"`
}

// Subtotal is UnitPrice × Quantity.
func (l Line) Subtotal() money.Money {
	return l.UnitPrice.Times(l.Quantity)
}

// Cart maps product ids to lines. The zero value is an empty cart.
type Cart struct {
	lines map[int64]Line
}

// Add puts qty units of p in the cart. Non-positive quantities count as one.
// A product already in the cart keeps the price it was first added at.
func (c *Cart) Add(p db.Product, qty int) error {
	if !p.Active {
		return ErrProductInactive
	}
	if qty <= 0 {
		qty = 1
	}
	if c.lines == nil {
		c.lines = map[int64]Line{}
	}
	line, ok := c.lines[p.ID]
	if !ok {
		line = Line{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price}
	}
	line.Quantity += qty
	c.lines[p.ID] = line
	return nil
}

// Decrement removes one unit of productID, dropping the line at zero. It
// reports whether the product was in the cart.
func (c *Cart) Decrement(productID int64) bool {
	line, ok := c.lines[productID]
	if !ok {
		return false
	}
	line.Quantity--
	if line.Quantity <= 0 {
		delete(c.lines, productID)
		return true
	}
	c.lines[productID] = line
	return true
}

// Remove deletes the line for productID.
func (c *Cart) Remove(productID int64) bool {
	if _, ok := c.lines[productID]; !ok {
		return false
	}
	delete(c.lines, productID)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	clear(c.lines)
}

// Len returns the number of distinct products.
func (c Cart) Len() int {
	return len(c.lines)
}

// Line returns the line for productID.
func (c Cart) Line(productID int64) (Line, bool) {
	l, ok := c.lines[productID]
	return l, ok
}

// Lines yields the lines ordered by product id. The sequence can be ranged
// over any number of times.
func (c Cart) Lines() iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for _, id := range slices.Sorted(maps.Keys(c.lines)) {
			if !yield(c.lines[id]) {
				return
			}
		}
	}
}

// Total is the sum of line subtotals.
func (c Cart) Total() money.Money {
	total := money.Zero
	for l := range c.Lines() {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Items converts the cart into pricing input.
func (c Cart) Items() []pricing.Item {
	items := make([]pricing.Item, 0, len(c.lines))
	for l := range c.Lines() {
		items = append(items, pricing.Item{ProductID: l.ProductID, Name: l.Name, Qty: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return items
}

// MarshalJSON encodes the cart as its session representation: product id
// (as a string key) to line.
func (c Cart) MarshalJSON() ([]byte, error) {
	out := make(map[string]Line, len(c.lines))
	for id, l := range c.lines {
		out[strconv.FormatInt(id, 10)] = l
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the session representation, skipping invalid entries.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw map[string]Line
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.lines = make(map[int64]Line, len(raw))
	for key, l := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 || l.Quantity <= 0 {
			continue
		}
		l.ProductID = id
		c.lines[id] = l
	}
	return nil
}

// NormalizeQuantity parses a user supplied quantity. Anything that is not a
// positive integer becomes 1.
func NormalizeQuantity(raw string) int {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty <= 0 {
		return 1
	}
	return qty
}
