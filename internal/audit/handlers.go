package audit

import (
	"net/http"

	"github.com/noah-isme/ecofor-market/internal/common"
)

// Handler exposes HTTP endpoints for product reports.
type Handler struct {
	Store Store
}

// List returns the newest reports first for administrators.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "report store not configured", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := h.Store.ListProductReports(r.Context(), int32(limit))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch reports", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
