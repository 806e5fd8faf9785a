// Package audit records product change reports (stock movements and discount
// edits) and exposes them to administrators.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/ecofor-market/internal/db"
)

// Store defines the database operations required for reports.
type Store interface {
	CreateProductReport(ctx context.Context, arg db.CreateProductReportParams) (db.ProductReport, error)
	ListProductReports(ctx context.Context, limit int32) ([]db.ProductReport, error)
}

// Writer is the write half of Store. Transactional callers pass their
// db.Querier so reports commit or roll back with the change they describe.
type Writer interface {
	CreateProductReport(ctx context.Context, arg db.CreateProductReportParams) (db.ProductReport, error)
}

// Recorder turns product changes into reports. A disabled recorder is a no-op.
type Recorder struct {
	Enabled bool
}

// ProductChanged compares before and after and writes one report per changed
// audited field. actorID is zero for system changes.
func (r Recorder) ProductChanged(ctx context.Context, w Writer, before, after db.Product, actorID int64) error {
	if !r.Enabled {
		return nil
	}
	if w == nil {
		return errors.New("audit: writer not configured")
	}
	if before.Stock != after.Stock {
		if err := r.write(ctx, w, db.ReportStock, after.ID, stockDescription(before.Stock, after.Stock), actorID); err != nil {
			return err
		}
	}
	if before.DiscountPct != after.DiscountPct {
		desc := fmt.Sprintf("Descuento cambiado de %s%% a %s%%.", pct(before.DiscountPct), pct(after.DiscountPct))
		if err := r.write(ctx, w, db.ReportDescuento, after.ID, desc, actorID); err != nil {
			return err
		}
	}
	return nil
}

// StockChanged records a stock movement that happened outside an edit, e.g.
// a checkout decrement.
func (r Recorder) StockChanged(ctx context.Context, w Writer, productID int64, from, to int, actorID int64) error {
	if !r.Enabled || from == to {
		return nil
	}
	if w == nil {
		return errors.New("audit: writer not configured")
	}
	return r.write(ctx, w, db.ReportStock, productID, stockDescription(from, to), actorID)
}

func (r Recorder) write(ctx context.Context, w Writer, kind string, productID int64, desc string, actorID int64) error {
	var actor pgtype.Int8
	if actorID > 0 {
		actor = pgtype.Int8{Int64: actorID, Valid: true}
	}
	if _, err := w.CreateProductReport(ctx, db.CreateProductReportParams{
		Kind:        kind,
		ProductID:   productID,
		Description: desc,
		AccountID:   actor,
	}); err != nil {
		return fmt.Errorf("audit: record %s report: %w", kind, err)
	}
	return nil
}

func stockDescription(from, to int) string {
	diff := to - from
	movement := "Aumento"
	if diff < 0 {
		movement = "Disminución"
	}
	return fmt.Sprintf("Stock modificado: %s (%d). Valor previo: %d, nuevo valor: %d.", movement, diff, from, to)
}

func pct(v pgtype.Int4) string {
	if !v.Valid {
		return "0"
	}
	return strconv.Itoa(int(v.Int32))
}
