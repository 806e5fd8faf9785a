package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/db/dbtest"
)

func TestProductChangedWritesStockAndDiscountReports(t *testing.T) {
	store := dbtest.New()
	before := db.Product{ID: 5, Stock: 10}
	after := db.Product{ID: 5, Stock: 4, DiscountPct: pgtype.Int4{Int32: 15, Valid: true}}

	require.NoError(t, Recorder{Enabled: true}.ProductChanged(context.Background(), store, before, after, 9))

	reports, err := store.ListProductReports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	byKind := map[string]db.ProductReport{}
	for _, r := range reports {
		byKind[r.Kind] = r
	}
	require.Equal(t, "Stock modificado: Disminución (-6). Valor previo: 10, nuevo valor: 4.", byKind[db.ReportStock].Description)
	require.Equal(t, "Descuento cambiado de 0% a 15%.", byKind[db.ReportDescuento].Description)
	require.Equal(t, int64(9), byKind[db.ReportStock].AccountID.Int64)
}

func TestRecorderDisabledAndUnchanged(t *testing.T) {
	store := dbtest.New()
	p := db.Product{ID: 1, Stock: 3}
	require.NoError(t, Recorder{}.ProductChanged(context.Background(), store, p, db.Product{ID: 1}, 0))
	require.NoError(t, Recorder{Enabled: true}.ProductChanged(context.Background(), store, p, p, 0))
	require.NoError(t, Recorder{Enabled: true}.StockChanged(context.Background(), store, 1, 3, 3, 0))

	reports, err := store.ListProductReports(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, reports)
}

func TestStockChangedSystemActor(t *testing.T) {
	store := dbtest.New()
	require.NoError(t, Recorder{Enabled: true}.StockChanged(context.Background(), store, 2, 0, 12, 0))
	reports, err := store.ListProductReports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.False(t, reports[0].AccountID.Valid)
	require.Contains(t, reports[0].Description, "Aumento (12)")
}

func TestRecorderPropagatesWriteErrors(t *testing.T) {
	store := dbtest.New()
	store.FailOn("CreateProductReport", errors.New("disk full"))
	err := Recorder{Enabled: true}.StockChanged(context.Background(), store, 2, 1, 0, 0)
	require.ErrorContains(t, err, "disk full")
}

func TestHandlerList(t *testing.T) {
	store := dbtest.New()
	require.NoError(t, Recorder{Enabled: true}.StockChanged(context.Background(), store, 2, 5, 1, 0))

	rec := httptest.NewRecorder()
	Handler{Store: store}.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports?limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Data []db.ProductReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)

	rec = httptest.NewRecorder()
	Handler{}.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
