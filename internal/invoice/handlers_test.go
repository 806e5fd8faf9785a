package invoice_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/invoice"
	"github.com/noah-isme/ecofor-market/internal/money"
	"github.com/noah-isme/ecofor-market/internal/session"
)

func invoiceRouter(h *invoice.Handler, acct account.Account) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := session.NewContext(req.Context(), "sess-invoice")
			next.ServeHTTP(w, req.WithContext(account.NewContext(ctx, acct)))
		})
	})
	r.Get("/invoices/preview", h.Preview)
	r.Post("/invoices", h.Generate)
	r.Get("/invoices", h.List)
	r.Get("/invoices/{id}", h.Get)
	r.Get("/invoices/{id}/document", h.Document)
	return r
}

func TestHandlerGenerateFlow(t *testing.T) {
	svc, store := newService(t)
	carts := &cart.Service{Store: cart.NewMemoryStore(), Products: store}
	p := store.SeedProduct(db.Product{Name: "Toalla", Price: money.FromInt(1190), Stock: 200, Active: true})
	_, err := carts.Add(context.Background(), "sess-invoice", p.ID, 100)
	require.NoError(t, err)
	h := &invoice.Handler{Svc: svc, Carts: carts}

	rec := httptest.NewRecorder()
	invoiceRouter(h, retail).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_BUSINESS")

	router := invoiceRouter(h, business)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/preview", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"totalFinal":93000`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.Invoices(), 1)

	c, err := carts.Get(context.Background(), "sess-invoice")
	require.NoError(t, err)
	require.Zero(t, c.Len())

	id := strconv.FormatInt(store.Invoices()[0].ID, 10)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/"+id+"/document", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "FACTURA ELECTR")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	invoiceRouter(h, retail).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/"+id, nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "EMPTY_CART")
}
