// Package stock clamps cart lines against product stock and, when asked,
// takes the stock inside the caller's transaction.
package stock

import (
	"context"
	"fmt"
	"iter"

	"github.com/noah-isme/ecofor-market/internal/audit"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/pricing"
)

// Reason explains why a line was not fulfilled as requested.
type Reason string

const (
	// ReasonClamped means the quantity was reduced to the available stock.
	ReasonClamped Reason = "clamped"
	// ReasonOutOfStock means the product had no stock and the line was dropped.
	ReasonOutOfStock Reason = "out_of_stock"
	// ReasonUnavailable means the product no longer exists or is inactive.
	ReasonUnavailable Reason = "unavailable"
)

// Adjustment reports a line that was reduced or dropped.
type Adjustment struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Fulfilled int    `json:"fulfilled"`
	Reason    Reason `json:"reason"`
}

// Dropped reports whether nothing of the line survived.
func (a Adjustment) Dropped() bool { return a.Fulfilled == 0 }

// Options controls Reserve.
type Options struct {
	// Decrement locks each product row and subtracts the fulfilled quantity.
	Decrement bool
	Audit     audit.Recorder
	ActorID   int64
}

// Reservation holds the surviving lines as pricing input plus the adjustments.
type Reservation struct {
	Items       []pricing.Item
	Adjustments []Adjustment
}

// Empty reports whether no line survived.
func (r Reservation) Empty() bool { return len(r.Items) == 0 }

// Reserve walks lines in order, clamping each quantity to the product's stock.
// Lines must be sorted by product id so row locks are always taken in the same
// order. Quantities and prices come from the cart; names come from the
// product row at reservation time.
func Reserve(ctx context.Context, q db.Querier, lines iter.Seq[cart.Line], opts Options) (Reservation, error) {
	var res Reservation
	for line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		var (
			product db.Product
			err     error
		)
		if opts.Decrement {
			product, err = q.GetProductForUpdate(ctx, line.ProductID)
		} else {
			product, err = q.GetProduct(ctx, line.ProductID)
		}
		if err != nil && !db.IsNotFound(err) {
			return Reservation{}, fmt.Errorf("load product %d: %w", line.ProductID, err)
		}
		if err != nil || !product.Active {
			res.Adjustments = append(res.Adjustments, Adjustment{
				ProductID: line.ProductID,
				Name:      line.Name,
				Requested: line.Quantity,
				Reason:    ReasonUnavailable,
			})
			continue
		}

		qty := min(line.Quantity, product.Stock)
		if qty < line.Quantity {
			reason := ReasonClamped
			if qty <= 0 {
				reason = ReasonOutOfStock
			}
			res.Adjustments = append(res.Adjustments, Adjustment{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: line.Quantity,
				Fulfilled: max(qty, 0),
				Reason:    reason,
			})
		}
		if qty <= 0 {
			continue
		}

		if opts.Decrement {
			after, err := q.DecrementStock(ctx, product.ID, qty)
			if err != nil {
				return Reservation{}, fmt.Errorf("decrement stock %d: %w", product.ID, err)
			}
			if err := opts.Audit.StockChanged(ctx, q, product.ID, product.Stock, after.Stock, opts.ActorID); err != nil {
				return Reservation{}, err
			}
		}
		res.Items = append(res.Items, pricing.Item{
			ProductID: product.ID,
			Name:      product.Name,
			Qty:       qty,
			UnitPrice: line.UnitPrice,
		})
	}
	return res, nil
}
