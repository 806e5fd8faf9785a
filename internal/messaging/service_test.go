package messaging_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/db/dbtest"
	"github.com/noah-isme/ecofor-market/internal/events"
	"github.com/noah-isme/ecofor-market/internal/messaging"
	"github.com/noah-isme/ecofor-market/internal/money"
)

var customer = account.Account{ID: 1, Username: "ana", Tier: db.TierRetail}

func seedQuote(t *testing.T, store *dbtest.Store, estado string) db.Order {
	t.Helper()
	o, err := store.CreateOrder(context.Background(), db.CreateOrderParams{AccountID: customer.ID, Estado: estado, Total: money.FromInt(119000)})
	require.NoError(t, err)
	return o
}

func TestRequestQuotePicksSupportAgent(t *testing.T) {
	store := dbtest.New()
	store.SeedAccount(db.Account{ID: customer.ID, Username: customer.Username})
	store.SeedAccount(db.Account{ID: 2, Username: "soporte-1", Roles: []string{db.RoleCustomerSupport}})
	store.SeedAccount(db.Account{ID: 3, Username: "admin", Roles: []string{db.RoleAdmin}})
	store.SeedAccount(db.Account{ID: 4, Username: "soporte-2", Email: "soporte2@ecofor.cl", Roles: []string{db.RoleCustomerSupport}})
	quote := seedQuote(t, store, db.EstadoCotizacion)

	var candidates int
	svc := &messaging.Service{Store: store, Events: &events.Bus{Store: store}, Pick: func(n int) int {
		candidates = n
		return n - 1
	}}

	msg, err := svc.RequestQuote(context.Background(), customer, quote.ID)
	require.NoError(t, err)
	require.Equal(t, 2, candidates)
	require.Equal(t, int64(4), msg.RecipientID)
	require.Equal(t, customer.ID, msg.SenderID)
	require.True(t, msg.OrderID.Valid)
	require.Contains(t, msg.Body, "$119.000")

	evs := store.Events()
	require.Len(t, evs, 1)
	require.Equal(t, events.TopicQuoteRequested, evs[0].Topic)

	inbox, err := svc.Inbox(context.Background(), account.Account{ID: 4})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
}

func TestRequestQuoteWithoutStaff(t *testing.T) {
	store := dbtest.New()
	quote := seedQuote(t, store, db.EstadoCotizacion)
	svc := &messaging.Service{Store: store}

	_, err := svc.RequestQuote(context.Background(), customer, quote.ID)
	require.ErrorIs(t, err, messaging.ErrNoSupportStaff)
	require.Empty(t, store.Messages())

	router := chi.NewRouter()
	router.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(account.NewContext(r.Context(), customer)))
		})
	}).Post("/quotes/{id}/request", (&messaging.Handler{Svc: svc}).RequestQuote)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quotes/"+strconv.FormatInt(quote.ID, 10)+"/request", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "NO_SUPPORT_STAFF")
}

func TestRequestQuoteRejections(t *testing.T) {
	store := dbtest.New()
	store.SeedAccount(db.Account{ID: 2, Username: "soporte", Roles: []string{db.RoleCustomerSupport}})
	paid := seedQuote(t, store, db.EstadoPagado)
	quote := seedQuote(t, store, db.EstadoCotizacion)
	svc := &messaging.Service{Store: store}

	_, err := svc.RequestQuote(context.Background(), customer, paid.ID)
	require.ErrorIs(t, err, messaging.ErrNotQuote)

	_, err = svc.RequestQuote(context.Background(), account.Account{ID: 99}, quote.ID)
	require.ErrorIs(t, err, messaging.ErrForbidden)

	_, err = svc.RequestQuote(context.Background(), customer, 777)
	require.ErrorIs(t, err, messaging.ErrOrderNotFound)

	_, err = svc.RequestQuote(context.Background(), account.Account{}, quote.ID)
	require.ErrorIs(t, err, messaging.ErrNoAccount)
}
