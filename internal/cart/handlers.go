package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/pricing"
	"github.com/noah-isme/ecofor-market/internal/session"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

type lineView struct {
	Line
	Subtotal string `json:"subtotal"`
}

// Get returns the cart with its pricing breakdown for the current account.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	sid, _ := session.FromContext(r.Context())
	c, err := h.Svc.Get(r.Context(), sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// AddItem handles POST /cart/items/{productID}.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	productID, ok := common.ParseID(chi.URLParam(r, "productID"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	sid, _ := session.FromContext(r.Context())
	c, err := h.Svc.Add(r.Context(), sid, productID, quantityFromRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// DecrementItem handles POST /cart/items/{productID}/decrement.
func (h *Handler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.lineAction(w, r, h.Svc.Decrement)
}

// RemoveItem handles DELETE /cart/items/{productID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.lineAction(w, r, h.Svc.Remove)
}

// Clear handles DELETE /cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	sid, _ := session.FromContext(r.Context())
	if err := h.Svc.Clear(r.Context(), sid); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lineAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sid string, productID int64) (Cart, error)) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	productID, ok := common.ParseID(chi.URLParam(r, "productID"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	sid, _ := session.FromContext(r.Context())
	c, err := fn(r.Context(), sid, productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int, c Cart) {
	acct, _ := account.FromContext(r.Context())
	items := make([]lineView, 0, c.Len())
	for l := range c.Lines() {
		items = append(items, lineView{Line: l, Subtotal: l.Subtotal().String()})
	}
	common.JSON(w, status, map[string]any{
		"data": map[string]any{
			"items":   items,
			"count":   c.Len(),
			"total":   c.Total(),
			"pricing": pricing.PriceCart(c.Items(), acct.IsBusiness()),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not in cart", nil)
	case errors.Is(err, ErrProductInactive):
		common.JSONError(w, http.StatusConflict, "PRODUCT_INACTIVE", "product is not available", nil)
	case errors.Is(err, ErrNoSession):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "session cookie required", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
	}
}

// quantityFromRequest reads "quantity" from a JSON body, a form or the query
// string. Invalid input falls back to 1.
func quantityFromRequest(r *http.Request) int {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var payload struct {
			Quantity json.RawMessage `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return 1
		}
		return NormalizeQuantity(strings.Trim(string(payload.Quantity), `"`))
	}
	return NormalizeQuantity(r.FormValue("quantity"))
}
