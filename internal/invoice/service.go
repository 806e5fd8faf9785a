// Package invoice issues VAT-exempt facturas for business accounts.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/audit"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/document"
	"github.com/noah-isme/ecofor-market/internal/events"
	"github.com/noah-isme/ecofor-market/internal/obs"
	"github.com/noah-isme/ecofor-market/internal/pricing"
	"github.com/noah-isme/ecofor-market/internal/stock"
)

var (
	// ErrNotBusiness is returned when a non-empresa account asks for an invoice.
	ErrNotBusiness = errors.New("invoices are only issued to business accounts")
	// ErrEmptyCart is returned when the cart has no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNothingFulfilled is returned when every line was dropped for lack of stock.
	ErrNothingFulfilled = errors.New("no cart line could be fulfilled")
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoice not found")
	// ErrForbidden is returned when the account neither owns the invoice nor is staff.
	ErrForbidden = errors.New("invoice belongs to another account")
)

// Result is an invoice with its lines, plus the stock adjustments made while
// generating it.
type Result struct {
	Invoice     db.Invoice         `json:"invoice"`
	Lines       []db.InvoiceLine   `json:"lines"`
	Adjustments []stock.Adjustment `json:"adjustments,omitempty"`
}

// Preview is the unsaved pricing of a cart as it would be invoiced.
type Preview struct {
	Totals      pricing.Summary    `json:"totals"`
	Adjustments []stock.Adjustment `json:"adjustments,omitempty"`
}

// Service generates and reads invoices.
type Service struct {
	Store  db.Store
	Events *events.Bus
	Audit  audit.Recorder
	Logger *zerolog.Logger
}

var nopLogger = zerolog.Nop()

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("invoice service not configured")
	}
	return nil
}

func (s *Service) log() *zerolog.Logger {
	if s.Logger == nil {
		return &nopLogger
	}
	return s.Logger
}

// Generate turns the cart into an invoice in one transaction: every line is
// clamped to the locked product's stock, stock is decremented and the
// invoice is priced without VAT. The cart is cleared on success. Nothing is
// written for non-business accounts.
func (s *Service) Generate(ctx context.Context, c *cart.Cart, acct account.Account) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}
	if !acct.IsBusiness() {
		obs.CountInvoice("not_business")
		return Result{}, ErrNotBusiness
	}
	if c == nil || c.Len() == 0 {
		obs.CountInvoice("empty")
		return Result{}, ErrEmptyCart
	}

	start := time.Now()
	var res Result
	err := s.Store.ExecTx(ctx, func(q db.Querier) error {
		reservation, err := stock.Reserve(ctx, q, c.Lines(), stock.Options{Decrement: true, Audit: s.Audit, ActorID: acct.ID})
		if err != nil {
			return err
		}
		res.Adjustments = reservation.Adjustments
		if reservation.Empty() {
			return ErrNothingFulfilled
		}
		totals := pricing.Price(reservation.Items, pricing.ModeInvoice, true)
		res.Invoice, err = q.CreateInvoice(ctx, db.CreateInvoiceParams{
			AccountID:      acct.ID,
			TotalBruto:     totals.Gross,
			TotalDescuento: totals.Discount,
			TotalSinIva:    totals.ExVAT,
			TotalFinal:     totals.Final,
		})
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		res.Lines = make([]db.InvoiceLine, 0, len(totals.Lines))
		for _, line := range totals.Lines {
			row, err := q.CreateInvoiceLine(ctx, db.CreateInvoiceLineParams{
				InvoiceID: res.Invoice.ID,
				ProductID: line.ProductID,
				Name:      line.Name,
				Quantity:  line.Qty,
				UnitPrice: line.UnitPrice,
				Discount:  line.Discount,
				Subtotal:  line.Final,
			})
			if err != nil {
				return fmt.Errorf("create invoice line: %w", err)
			}
			res.Lines = append(res.Lines, row)
		}
		return nil
	})
	obs.ObserveCheckout("invoice", obs.DurationMillis(time.Since(start)))
	for _, adj := range res.Adjustments {
		obs.CountStockAdjustment("invoice", string(adj.Reason))
	}
	if err != nil {
		if errors.Is(err, ErrNothingFulfilled) {
			obs.CountInvoice("nothing_fulfilled")
			return Result{Adjustments: res.Adjustments}, err
		}
		obs.CountInvoice("error")
		return Result{}, fmt.Errorf("generate invoice: %w", err)
	}
	obs.CountInvoice("ok")
	c.Clear()

	s.log().Info().
		Int64("invoice_id", res.Invoice.ID).
		Int64("account_id", acct.ID).
		Str("total_final", res.Invoice.TotalFinal.String()).
		Int("adjustments", len(res.Adjustments)).
		Msg("invoice_generated")
	if s.Events != nil {
		payload := map[string]any{
			"invoiceId":  res.Invoice.ID,
			"accountId":  acct.ID,
			"totalFinal": res.Invoice.TotalFinal,
			"lines":      len(res.Lines),
		}
		if _, err := s.Events.Emit(ctx, events.TopicInvoiceGenerated, res.Invoice.ID, payload); err != nil {
			s.log().Error().Err(err).Int64("invoice_id", res.Invoice.ID).Msg("emit_invoice_event")
		}
	}
	return res, nil
}

// Preview prices the cart the way Generate would, clamping against current
// stock without locking or writing anything.
func (s *Service) Preview(ctx context.Context, c *cart.Cart, acct account.Account) (Preview, error) {
	if err := s.ready(); err != nil {
		return Preview{}, err
	}
	if !acct.IsBusiness() {
		return Preview{}, ErrNotBusiness
	}
	if c == nil || c.Len() == 0 {
		return Preview{Totals: pricing.Price(nil, pricing.ModeInvoice, true)}, nil
	}
	reservation, err := stock.Reserve(ctx, s.Store, c.Lines(), stock.Options{})
	if err != nil {
		return Preview{}, fmt.Errorf("preview invoice: %w", err)
	}
	return Preview{
		Totals:      pricing.Price(reservation.Items, pricing.ModeInvoice, true),
		Adjustments: reservation.Adjustments,
	}, nil
}

// Get returns an invoice with its lines. Only the owner and staff can read it.
func (s *Service) Get(ctx context.Context, invoiceID int64, acct account.Account) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}
	inv, err := s.Store.GetInvoice(ctx, invoiceID)
	if err != nil {
		if db.IsNotFound(err) {
			return Result{}, ErrNotFound
		}
		return Result{}, fmt.Errorf("load invoice: %w", err)
	}
	if inv.AccountID != acct.ID && !acct.IsStaff() {
		return Result{}, ErrForbidden
	}
	lines, err := s.Store.ListInvoiceLines(ctx, inv.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load invoice lines: %w", err)
	}
	return Result{Invoice: inv, Lines: lines}, nil
}

// ListForAccount returns the account's invoices, newest first.
func (s *Service) ListForAccount(ctx context.Context, acct account.Account) ([]db.Invoice, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	invoices, err := s.Store.ListInvoicesByAccount(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// Document returns the printable data of an invoice.
func (s *Service) Document(ctx context.Context, invoiceID int64, acct account.Account) (document.Document, error) {
	res, err := s.Get(ctx, invoiceID, acct)
	if err != nil {
		return document.Document{}, err
	}
	owner := acct
	if res.Invoice.AccountID != acct.ID {
		row, err := s.Store.GetAccountByID(ctx, res.Invoice.AccountID)
		if err != nil {
			return document.Document{}, fmt.Errorf("load invoice owner: %w", err)
		}
		owner = account.FromRow(row)
	}
	doc := document.New(document.KindInvoice, "FACTURA ELECTRÓNICA", res.Invoice.ID, res.Invoice.IssuedAt, owner)
	for _, l := range res.Lines {
		doc.AddLine(l.Name, l.Quantity, l.UnitPrice, l.Discount, l.Subtotal)
	}
	doc.AddTotal("Total bruto", res.Invoice.TotalBruto)
	doc.AddTotal("Descuentos", res.Invoice.TotalDescuento)
	doc.AddTotal("Total sin IVA", res.Invoice.TotalSinIva)
	doc.AddTotal("Total final (exento IVA)", res.Invoice.TotalFinal)
	return doc, nil
}
