package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/order"
	"github.com/noah-isme/ecofor-market/internal/session"
)

const testSession = "sess-order"

func orderRouter(h *order.Handler, acct *account.Account) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := session.NewContext(req.Context(), testSession)
			if acct != nil {
				ctx = account.NewContext(ctx, *acct)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/checkout", h.Checkout)
	r.Post("/quotes", h.CreateQuote)
	r.Get("/quotes/{id}/document", h.QuoteDocument)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/confirm-payment", h.ConfirmPayment)
	return r
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandlerCheckoutClearsSessionCart(t *testing.T) {
	svc, store := newService(t)
	carts := &cart.Service{Store: cart.NewMemoryStore(), Products: store}
	p := seedProduct(store, 1190, 4)
	_, err := carts.Add(context.Background(), testSession, p.ID, 10)
	require.NoError(t, err)

	router := orderRouter(&order.Handler{Svc: svc, Carts: carts}, &retail)
	rec, env := do(t, router, http.MethodPost, "/checkout")
	require.Equal(t, http.StatusCreated, rec.Code)

	var res order.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, db.EstadoPagado, res.Order.Estado)
	require.Equal(t, 4, res.Items[0].Quantity)
	require.Len(t, res.Adjustments, 1)

	c, err := carts.Get(context.Background(), testSession)
	require.NoError(t, err)
	require.Zero(t, c.Len())

	rec, env = do(t, router, http.MethodPost, "/checkout")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "EMPTY_CART", env.Error.Code)
}

func TestHandlerCheckoutOutOfStock(t *testing.T) {
	svc, store := newService(t)
	carts := &cart.Service{Store: cart.NewMemoryStore(), Products: store}
	p := seedProduct(store, 1190, 3)
	_, err := carts.Add(context.Background(), testSession, p.ID, 2)
	require.NoError(t, err)
	_, err = store.DecrementStock(context.Background(), p.ID, 3)
	require.NoError(t, err)

	router := orderRouter(&order.Handler{Svc: svc, Carts: carts}, &retail)
	rec, env := do(t, router, http.MethodPost, "/checkout")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "OUT_OF_STOCK", env.Error.Code)
	require.Contains(t, env.Error.Details, "adjustments")

	c, err := carts.Get(context.Background(), testSession)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
}

func TestHandlerCheckoutRequiresAccount(t *testing.T) {
	svc, store := newService(t)
	carts := &cart.Service{Store: cart.NewMemoryStore(), Products: store}
	router := orderRouter(&order.Handler{Svc: svc, Carts: carts}, nil)
	rec, _ := do(t, router, http.MethodPost, "/checkout")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerConfirmPaymentTwice(t *testing.T) {
	svc, store := newService(t)
	carts := &cart.Service{Store: cart.NewMemoryStore(), Products: store}
	p := seedProduct(store, 1190, 10)
	_, err := carts.Add(context.Background(), testSession, p.ID, 3)
	require.NoError(t, err)

	router := orderRouter(&order.Handler{Svc: svc, Carts: carts}, &retail)
	rec, env := do(t, router, http.MethodPost, "/quotes")
	require.Equal(t, http.StatusCreated, rec.Code)
	var quote order.Result
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	id := strconv.FormatInt(quote.Order.ID, 10)
	path := "/orders/" + id

	rec, _ = do(t, router, http.MethodGet, "/quotes/"+id+"/document")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "COTIZACIÓN")

	rec, env = do(t, router, http.MethodPost, path+"/confirm-payment")
	require.Equal(t, http.StatusOK, rec.Code)
	var paid order.Result
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	require.Equal(t, db.EstadoPagado, paid.Order.Estado)
	require.Empty(t, paid.Warning)
	require.Equal(t, 7, store.Stock(p.ID))

	rec, env = do(t, router, http.MethodPost, path+"/confirm-payment")
	require.Equal(t, http.StatusOK, rec.Code)
	var again order.Result
	require.NoError(t, json.Unmarshal(env.Data, &again))
	require.Equal(t, order.WarningAlreadyPaid, again.Warning)
	require.Equal(t, 7, store.Stock(p.ID))

	rec, env = do(t, router, http.MethodGet, "/quotes/"+id+"/document")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "NOT_A_QUOTE", env.Error.Code)
}

func TestHandlerOrderAccess(t *testing.T) {
	svc, store := newService(t)
	carts := &cart.Service{Store: cart.NewMemoryStore(), Products: store}
	p := seedProduct(store, 1190, 10)
	_, err := carts.Add(context.Background(), testSession, p.ID, 1)
	require.NoError(t, err)
	placed, err := svc.Checkout(context.Background(), mustCart(t, carts), retail)
	require.NoError(t, err)
	path := "/orders/" + strconv.FormatInt(placed.Order.ID, 10)

	rec, env := do(t, orderRouter(&order.Handler{Svc: svc, Carts: carts}, &business), http.MethodGet, path)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, _ = do(t, orderRouter(&order.Handler{Svc: svc, Carts: carts}, &support), http.MethodGet, path)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, orderRouter(&order.Handler{Svc: svc, Carts: carts}, &retail), http.MethodGet, "/orders/9999")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, orderRouter(&order.Handler{Svc: svc, Carts: carts}, &retail), http.MethodGet, "/orders/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, orderRouter(&order.Handler{Svc: svc, Carts: carts}, &retail), http.MethodGet, "/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []db.Order
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 1)
}

func mustCart(t *testing.T, carts *cart.Service) *cart.Cart {
	t.Helper()
	c, err := carts.Get(context.Background(), testSession)
	require.NoError(t, err)
	return &c
}
