package invoice

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/session"
)

// Handler exposes invoice endpoints.
type Handler struct {
	Svc   *Service
	Carts *cart.Service
}

// Preview handles GET /invoices/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	c, acct, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	preview, err := h.Svc.Preview(r.Context(), &c, acct)
	if err != nil {
		h.writeError(w, err, Result{})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": preview})
}

// Generate handles POST /invoices.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	c, acct, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	res, err := h.Svc.Generate(r.Context(), &c, acct)
	if err != nil {
		h.writeError(w, err, res)
		return
	}
	sid, _ := session.FromContext(r.Context())
	if err := h.Carts.Clear(r.Context(), sid); err != nil {
		h.Svc.log().Error().Err(err).Int64("invoice_id", res.Invoice.ID).Msg("clear_cart_after_invoice")
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": res})
}

// List handles GET /invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	acct, ok := account.FromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	invoices, err := h.Svc.ListForAccount(r.Context(), acct)
	if err != nil {
		h.writeError(w, err, Result{})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": invoices})
}

// Get handles GET /invoices/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	acct, _ := account.FromContext(r.Context())
	res, err := h.Svc.Get(r.Context(), id, acct)
	if err != nil {
		h.writeError(w, err, Result{})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// Document handles GET /invoices/{id}/document.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	acct, _ := account.FromContext(r.Context())
	doc, err := h.Svc.Document(r.Context(), id, acct)
	if err != nil {
		h.writeError(w, err, Result{})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (h *Handler) sessionCart(w http.ResponseWriter, r *http.Request) (cart.Cart, account.Account, bool) {
	if h.Svc == nil || h.Carts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return cart.Cart{}, account.Account{}, false
	}
	acct, ok := account.FromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return cart.Cart{}, account.Account{}, false
	}
	sid, _ := session.FromContext(r.Context())
	c, err := h.Carts.Get(r.Context(), sid)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to load cart", nil)
		return cart.Cart{}, account.Account{}, false
	}
	return c, acct, true
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return 0, false
	}
	id, ok := common.ParseID(chi.URLParam(r, "id"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoice id", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, res Result) {
	switch {
	case errors.Is(err, ErrNotBusiness):
		common.JSONError(w, http.StatusForbidden, "NOT_BUSINESS", "invoices are only issued to business accounts", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, ErrNothingFulfilled):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "no cart line could be fulfilled", map[string]any{"adjustments": res.Adjustments})
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "invoice not found", nil)
	case errors.Is(err, ErrForbidden):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "invoice belongs to another account", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process invoice", nil)
	}
}
