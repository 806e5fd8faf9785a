package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/common"
)

// Handler exposes public catalog and admin product endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Categories handles GET /api/v1/catalog/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": Categories()})
}

// Products handles GET /api/v1/catalog/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	result, err := h.service.List(r.Context(), h.service.ParseListParams(r.URL.Query()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeList(w, result)
}

// Product handles GET /api/v1/catalog/products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// AdminList handles GET /api/v1/admin/products.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	result, err := h.service.ListAll(r.Context(), common.PageParam(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeList(w, result)
}

// AdminCreate handles POST /api/v1/admin/products.
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), in, actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

// AdminUpdate handles PUT /api/v1/admin/products/{id}.
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	p, err := h.service.Update(r.Context(), id, in, actorID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// AdminDelete handles DELETE /api/v1/admin/products/{id}.
func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return 0, false
	}
	id, ok := common.ParseID(chi.URLParam(r, "id"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return 0, false
	}
	return id, true
}

func writeList(w http.ResponseWriter, result ProductListResult) {
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.NewPagination(result.Page, result.Limit, result.Total),
	})
}

func decodeInput(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	var in ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", map[string]any{"offset": syntaxErr.Offset})
			return in, false
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return in, false
	}
	return in, true
}

func actorID(r *http.Request) int64 {
	acct, _ := account.FromContext(r.Context())
	return acct.ID
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, err)
}
