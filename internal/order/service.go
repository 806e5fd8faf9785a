// Package order turns carts into orders and quotes and confirms their payment.
package order

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/audit"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/document"
	"github.com/noah-isme/ecofor-market/internal/events"
	"github.com/noah-isme/ecofor-market/internal/lock"
	"github.com/noah-isme/ecofor-market/internal/money"
	"github.com/noah-isme/ecofor-market/internal/obs"
	"github.com/noah-isme/ecofor-market/internal/pricing"
	"github.com/noah-isme/ecofor-market/internal/stock"
)

var (
	// ErrEmptyCart is returned when checking out or quoting an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNothingFulfilled is returned when every cart line was dropped for lack of stock.
	ErrNothingFulfilled = errors.New("no cart line could be fulfilled")
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrForbidden is returned when the account neither owns the order nor is staff.
	ErrForbidden = errors.New("order belongs to another account")
	// ErrAlreadyPaid is returned alongside a Result when confirming a paid order.
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrNotQuote is returned when a quote-only operation targets another estado.
	ErrNotQuote = errors.New("order is not a quote")
	// ErrNoAccount is returned when the caller is not authenticated.
	ErrNoAccount = errors.New("account required")
)

// WarningAlreadyPaid is set on Result.Warning when a confirmation was a no-op.
const WarningAlreadyPaid = "order is already paid; nothing was changed"

const defaultLockTTL = 15 * time.Second

// Locker serialises payment confirmation per order. lock.Locker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Result is returned by every order operation. Adjustments lists the cart
// lines that were reduced or dropped for lack of stock.
type Result struct {
	Order       db.Order           `json:"order"`
	Items       []db.OrderItem     `json:"items"`
	Totals      *pricing.Summary   `json:"totals,omitempty"`
	Adjustments []stock.Adjustment `json:"adjustments,omitempty"`
	Warning     string             `json:"warning,omitempty"`
}

// Service implements checkout, quotes and payment confirmation.
type Service struct {
	Store   db.Store
	Events  *events.Bus
	Audit   audit.Recorder
	Locker  Locker
	LockTTL time.Duration
	Logger  *zerolog.Logger
}

var nopLogger = zerolog.Nop()

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("order service not configured")
	}
	return nil
}

func (s *Service) log() *zerolog.Logger {
	if s.Logger == nil {
		return &nopLogger
	}
	return s.Logger
}

// Checkout converts the cart into a paid order in one transaction. Each line
// is clamped to the locked product's stock, zero lines are dropped and the
// stock is decremented. The cart is cleared on success.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, acct account.Account) (Result, error) {
	return s.place(ctx, c, acct, placement{
		kind:   "checkout",
		mode:   pricing.ModeCheckout,
		estado: db.EstadoPagado,
		take:   true,
		topic:  events.TopicOrderPaid,
	})
}

// CreateQuote records the cart as a cotizacion. Quantities are clamped like a
// checkout but stock is left untouched and no discount applies.
func (s *Service) CreateQuote(ctx context.Context, c *cart.Cart, acct account.Account) (Result, error) {
	return s.place(ctx, c, acct, placement{
		kind:   "quote",
		mode:   pricing.ModeQuote,
		estado: db.EstadoCotizacion,
		topic:  events.TopicQuoteCreated,
	})
}

type placement struct {
	kind   string
	mode   pricing.Mode
	estado string
	take   bool
	topic  string
}

func (s *Service) place(ctx context.Context, c *cart.Cart, acct account.Account, p placement) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}
	if acct.ID <= 0 {
		return Result{}, ErrNoAccount
	}
	if c == nil || c.Len() == 0 {
		obs.CountOrder(p.kind, "empty")
		return Result{}, ErrEmptyCart
	}

	start := time.Now()
	var res Result
	err := s.Store.ExecTx(ctx, func(q db.Querier) error {
		reservation, err := stock.Reserve(ctx, q, c.Lines(), stock.Options{Decrement: p.take, Audit: s.Audit, ActorID: acct.ID})
		if err != nil {
			return err
		}
		res.Adjustments = reservation.Adjustments
		if reservation.Empty() {
			return ErrNothingFulfilled
		}
		totals := pricing.Price(reservation.Items, p.mode, acct.IsBusiness())
		res.Totals = &totals
		res.Order, err = q.CreateOrder(ctx, db.CreateOrderParams{
			AccountID: acct.ID,
			Estado:    p.estado,
			Total:     totals.Final,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		res.Items, err = createItems(ctx, q, res.Order.ID, reservation.Items)
		return err
	})
	obs.ObserveCheckout(p.kind, obs.DurationMillis(time.Since(start)))
	for _, adj := range res.Adjustments {
		obs.CountStockAdjustment(p.kind, string(adj.Reason))
	}
	if err != nil {
		if errors.Is(err, ErrNothingFulfilled) {
			obs.CountOrder(p.kind, "nothing_fulfilled")
			return Result{Adjustments: res.Adjustments}, err
		}
		obs.CountOrder(p.kind, "error")
		return Result{}, fmt.Errorf("%s: %w", p.kind, err)
	}
	obs.CountOrder(p.kind, "ok")
	c.Clear()

	s.log().Info().
		Str("kind", p.kind).
		Int64("order_id", res.Order.ID).
		Int64("account_id", acct.ID).
		Str("total", res.Order.Total.String()).
		Int("adjustments", len(res.Adjustments)).
		Msg("order_placed")
	s.emit(ctx, p.topic, res.Order, len(res.Items))
	return res, nil
}

func createItems(ctx context.Context, q db.Querier, orderID int64, items []pricing.Item) ([]db.OrderItem, error) {
	out := make([]db.OrderItem, 0, len(items))
	for _, it := range items {
		row, err := q.CreateOrderItem(ctx, db.CreateOrderItemParams{
			OrderID:     orderID,
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Qty,
			UnitPrice:   it.UnitPrice,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}

// ConfirmPayment marks an order as paid, decrementing each item's stock
// (floored at zero). Confirming an already paid order changes nothing and
// returns the order with a warning together with ErrAlreadyPaid.
func (s *Service) ConfirmPayment(ctx context.Context, orderID int64, acct account.Account) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}
	if acct.ID <= 0 {
		return Result{}, ErrNoAccount
	}
	var (
		res         Result
		alreadyPaid bool
	)
	run := func(ctx context.Context) error {
		return s.Store.ExecTx(ctx, func(q db.Querier) error {
			o, err := q.GetOrderForUpdate(ctx, orderID)
			if err != nil {
				if db.IsNotFound(err) {
					return ErrNotFound
				}
				return fmt.Errorf("load order: %w", err)
			}
			if !canAccess(o, acct) {
				return ErrForbidden
			}
			items, err := q.ListOrderItems(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("load order items: %w", err)
			}
			res.Order, res.Items = o, items
			if o.Estado == db.EstadoPagado {
				alreadyPaid = true
				return nil
			}
			byProduct := slices.SortedFunc(slices.Values(items), func(a, b db.OrderItem) int {
				return cmp.Compare(a.ProductID, b.ProductID)
			})
			for _, it := range byProduct {
				before, err := q.GetProductForUpdate(ctx, it.ProductID)
				if err != nil {
					return fmt.Errorf("lock product %d: %w", it.ProductID, err)
				}
				after, err := q.DecrementStock(ctx, it.ProductID, it.Quantity)
				if err != nil {
					return fmt.Errorf("decrement stock %d: %w", it.ProductID, err)
				}
				if err := s.Audit.StockChanged(ctx, q, it.ProductID, before.Stock, after.Stock, acct.ID); err != nil {
					return err
				}
			}
			n, err := q.MarkOrderPaid(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("mark order paid: %w", err)
			}
			if n == 0 {
				return ErrAlreadyPaid
			}
			res.Order, err = q.GetOrder(ctx, o.ID)
			return err
		})
	}

	var err error
	if s.Locker != nil {
		ttl := s.LockTTL
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		err = s.Locker.WithLock(ctx, lock.Key("order", strconv.FormatInt(orderID, 10), "confirm"), ttl, run)
	} else {
		err = run(ctx)
	}

	switch {
	case errors.Is(err, ErrAlreadyPaid):
		// lost a race with a concurrent confirmation; the rollback undid our decrements
		current, getErr := s.Get(ctx, orderID, acct)
		if getErr != nil {
			return Result{}, getErr
		}
		res, alreadyPaid = current, true
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		obs.CountPaymentConfirmation("rejected")
		return Result{}, err
	case err != nil:
		obs.CountPaymentConfirmation("error")
		return Result{}, fmt.Errorf("confirm payment: %w", err)
	}
	if alreadyPaid {
		obs.CountPaymentConfirmation("already_paid")
		s.log().Warn().Int64("order_id", orderID).Int64("account_id", acct.ID).Msg("payment_already_confirmed")
		res.Warning = WarningAlreadyPaid
		return res, ErrAlreadyPaid
	}
	obs.CountPaymentConfirmation("paid")
	s.log().Info().Int64("order_id", orderID).Int64("account_id", acct.ID).Msg("payment_confirmed")
	s.emit(ctx, events.TopicPaymentConfirmed, res.Order, len(res.Items))
	return res, nil
}

// Get returns an order with its items. Only the owner and staff can read it.
func (s *Service) Get(ctx context.Context, orderID int64, acct account.Account) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return Result{}, ErrNotFound
		}
		return Result{}, fmt.Errorf("load order: %w", err)
	}
	if !canAccess(o, acct) {
		return Result{}, ErrForbidden
	}
	items, err := s.Store.ListOrderItems(ctx, o.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load order items: %w", err)
	}
	return Result{Order: o, Items: items}, nil
}

// ListForAccount returns the account's orders, newest first.
func (s *Service) ListForAccount(ctx context.Context, acct account.Account) ([]db.Order, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if acct.ID <= 0 {
		return nil, ErrNoAccount
	}
	orders, err := s.Store.ListOrdersByAccount(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// QuoteDocument returns the printable data of a quote.
func (s *Service) QuoteDocument(ctx context.Context, orderID int64, acct account.Account) (document.Document, error) {
	res, err := s.Get(ctx, orderID, acct)
	if err != nil {
		return document.Document{}, err
	}
	if res.Order.Estado != db.EstadoCotizacion {
		return document.Document{}, ErrNotQuote
	}
	owner := acct
	if res.Order.AccountID != acct.ID {
		row, err := s.Store.GetAccountByID(ctx, res.Order.AccountID)
		if err != nil {
			return document.Document{}, fmt.Errorf("load order owner: %w", err)
		}
		owner = account.FromRow(row)
	}
	doc := document.New(document.KindQuote, "COTIZACIÓN", res.Order.ID, res.Order.CreatedAt, owner)
	for _, it := range res.Items {
		doc.AddLine(it.ProductName, it.Quantity, it.UnitPrice, money.Zero, it.UnitPrice.Times(it.Quantity))
	}
	doc.AddTotal("Total cotización (IVA incluido)", res.Order.Total)
	return doc, nil
}

func canAccess(o db.Order, acct account.Account) bool {
	return o.AccountID == acct.ID || acct.IsStaff()
}

func (s *Service) emit(ctx context.Context, topic string, o db.Order, items int) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId":   o.ID,
		"accountId": o.AccountID,
		"estado":    o.Estado,
		"total":     o.Total,
		"items":     items,
	}
	if _, err := s.Events.Emit(ctx, topic, o.ID, payload); err != nil {
		s.log().Error().Err(err).Str("topic", topic).Int64("order_id", o.ID).Msg("emit_order_event")
	}
}
