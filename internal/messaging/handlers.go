package messaging

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/common"
)

// Handler exposes quote requests and the staff inbox.
type Handler struct {
	Svc *Service
}

// RequestQuote handles POST /quotes/{id}/request.
func (h *Handler) RequestQuote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "messaging service not configured", nil)
		return
	}
	id, ok := common.ParseID(chi.URLParam(r, "id"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	acct, _ := account.FromContext(r.Context())
	msg, err := h.Svc.RequestQuote(r.Context(), acct, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": msg})
}

// Inbox handles GET /messages.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "messaging service not configured", nil)
		return
	}
	acct, _ := account.FromContext(r.Context())
	msgs, err := h.Svc.Inbox(r.Context(), acct)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": msgs})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoAccount):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
	case errors.Is(err, ErrNoSupportStaff):
		common.JSONError(w, http.StatusServiceUnavailable, "NO_SUPPORT_STAFF", "no support staff is available right now, please try again later", nil)
	case errors.Is(err, ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrForbidden):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "order belongs to another account", nil)
	case errors.Is(err, ErrNotQuote):
		common.JSONError(w, http.StatusConflict, "NOT_A_QUOTE", "order is not a quote", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to send message", nil)
	}
}
