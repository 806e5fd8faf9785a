package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/session"
)

// Handler exposes checkout, quote and order endpoints.
type Handler struct {
	Svc   *Service
	Carts *cart.Service
}

// Checkout handles POST /checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.placeFromCart(w, r, h.Svc.Checkout)
}

// CreateQuote handles POST /quotes.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	h.placeFromCart(w, r, h.Svc.CreateQuote)
}

func (h *Handler) placeFromCart(w http.ResponseWriter, r *http.Request, place func(context.Context, *cart.Cart, account.Account) (Result, error)) {
	if h.Svc == nil || h.Carts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	acct, ok := account.FromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	sid, _ := session.FromContext(r.Context())
	c, err := h.Carts.Get(r.Context(), sid)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to load cart", nil)
		return
	}
	res, err := place(r.Context(), &c, acct)
	if err != nil {
		h.writeError(w, err, res)
		return
	}
	if err := h.Carts.Clear(r.Context(), sid); err != nil {
		h.Svc.log().Error().Err(err).Int64("order_id", res.Order.ID).Msg("clear_cart_after_order")
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": res})
}

// List handles GET /orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	acct, _ := account.FromContext(r.Context())
	orders, err := h.Svc.ListForAccount(r.Context(), acct)
	if err != nil {
		h.writeError(w, err, Result{})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// Get handles GET /orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	acct, _ := account.FromContext(r.Context())
	res, err := h.Svc.Get(r.Context(), id, acct)
	if err != nil {
		h.writeError(w, err, res)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// ConfirmPayment handles POST /orders/{id}/confirm-payment. Confirming twice
// answers 200 with a warning.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	acct, _ := account.FromContext(r.Context())
	res, err := h.Svc.ConfirmPayment(r.Context(), id, acct)
	if err != nil && !errors.Is(err, ErrAlreadyPaid) {
		h.writeError(w, err, res)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// QuoteDocument handles GET /quotes/{id}/document.
func (h *Handler) QuoteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	acct, _ := account.FromContext(r.Context())
	doc, err := h.Svc.QuoteDocument(r.Context(), id, acct)
	if err != nil {
		h.writeError(w, err, Result{})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return 0, false
	}
	id, ok := common.ParseID(chi.URLParam(r, "id"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, res Result) {
	switch {
	case errors.Is(err, ErrNoAccount):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, ErrNothingFulfilled):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "no cart line could be fulfilled", map[string]any{"adjustments": res.Adjustments})
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrForbidden):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "order belongs to another account", nil)
	case errors.Is(err, ErrNotQuote):
		common.JSONError(w, http.StatusConflict, "NOT_A_QUOTE", "order is not a quote", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process order", nil)
	}
}
