package cart_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/db/dbtest"
	"github.com/noah-isme/ecofor-market/internal/money"
	"github.com/noah-isme/ecofor-market/internal/session"
)

func newCartService(t *testing.T) (*cart.Service, *dbtest.Store) {
	t.Helper()
	store := dbtest.New()
	return &cart.Service{Store: cart.NewMemoryStore(), Products: store}, store
}

func TestServiceAddDecrementRemove(t *testing.T) {
	svc, store := newCartService(t)
	ctx := context.Background()
	p := store.SeedProduct(db.Product{Name: "Cloro gel", Price: money.FromInt(1190), Stock: 20, Active: true, Category: "limpiadores"})
	inactive := store.SeedProduct(db.Product{Name: "Descontinuado", Price: money.FromInt(500), Stock: 5})

	c, err := svc.Add(ctx, "s1", p.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	_, err = svc.Add(ctx, "s1", inactive.ID, 1)
	require.ErrorIs(t, err, cart.ErrProductInactive)

	_, err = svc.Add(ctx, "s1", 9999, 1)
	require.ErrorIs(t, err, cart.ErrProductNotFound)

	c, err = svc.Decrement(ctx, "s1", p.ID)
	require.NoError(t, err)
	line, _ := c.Line(p.ID)
	require.Equal(t, 1, line.Quantity)

	_, err = svc.Remove(ctx, "s1", inactive.ID)
	require.ErrorIs(t, err, cart.ErrLineNotFound)

	c, err = svc.Remove(ctx, "s1", p.ID)
	require.NoError(t, err)
	require.Zero(t, c.Len())

	_, err = svc.Get(ctx, "")
	require.ErrorIs(t, err, cart.ErrNoSession)
}

func cartRouter(h *cart.Handler, acct *account.Account) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := session.NewContext(req.Context(), "sess-handler")
			if acct != nil {
				ctx = account.NewContext(ctx, *acct)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Post("/cart/items/{productID}", h.AddItem)
	r.Post("/cart/items/{productID}/decrement", h.DecrementItem)
	r.Delete("/cart/items/{productID}", h.RemoveItem)
	return r
}

func TestHandlerPricesForBusinessAccount(t *testing.T) {
	svc, store := newCartService(t)
	p := store.SeedProduct(db.Product{Name: "Papel higienico", Price: money.FromInt(1190), Stock: 500, Active: true})
	acct := &account.Account{ID: 7, Tier: db.TierEmpresa}
	router := cartRouter(&cart.Handler{Svc: svc}, acct)

	req := httptest.NewRequest(http.MethodPost, "/cart/items/"+itoa(p.ID), strings.NewReader(`{"quantity":"100"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"totalFinal":93000`)
	require.Contains(t, rec.Body.String(), `"totalBruto":119000`)

	// garbage quantity falls back to one unit
	req = httptest.NewRequest(http.MethodPost, "/cart/items/"+itoa(p.ID)+"?quantity=lots", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"quantity":101`)
}

func TestHandlerErrors(t *testing.T) {
	svc, _ := newCartService(t)
	router := cartRouter(&cart.Handler{Svc: svc}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/items/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/items/42", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/items/42/decrement", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":0`)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
