package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/auth"
	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/db/dbtest"
)

func newService(t *testing.T) (*auth.Service, *dbtest.Store) {
	t.Helper()
	store := dbtest.New()
	svc, err := auth.NewService(auth.Config{Queries: store, Secret: "s3cret"})
	require.NoError(t, err)
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, auth.RegisterInput{Username: "ana", Email: "Ana@Example.com", Password: "password1"})
	require.NoError(t, err)
	require.Equal(t, db.TierRetail, acct.Tier)
	require.Equal(t, "ana@example.com", acct.Email)
	require.False(t, acct.IsBusiness())

	_, err = svc.Register(ctx, auth.RegisterInput{Username: "ANA", Email: "other@example.com", Password: "password1"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	_, err = svc.Login(ctx, "ana", "wrong-password")
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)

	res, err := svc.Login(ctx, "ana", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	got, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, acct.ID, got.ID)
}

func TestRegisterEmpresaRequiresRut(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterInput{Username: "aseos", Email: "a@b.cl", Password: "password1", Tier: "empresa"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, map[string]any{"field": "rut"}, appErr.Details)

	acct, err := svc.Register(ctx, auth.RegisterInput{Username: "aseos", Email: "a@b.cl", Password: "password1", Tier: "empresa", Rut: "76.543.210-k"})
	require.NoError(t, err)
	require.True(t, acct.IsBusiness())
	require.Equal(t, "76.543.210-K", acct.Rut)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)
	cases := []auth.RegisterInput{
		{Email: "a@b.cl", Password: "password1"},
		{Username: "x", Email: "nope", Password: "password1"},
		{Username: "x", Email: "a@b.cl", Password: "short"},
		{Username: "x", Email: "a@b.cl", Password: "password1", Tier: "mayorista"},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	}
}

func TestMiddlewareRequireAuthAndRole(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, auth.RegisterInput{Username: "ops", Email: "ops@ecofor.cl", Password: "password1"})
	require.NoError(t, err)
	res, err := svc.Login(ctx, "ops", "password1")
	require.NoError(t, err)
	admin := store.SeedAccount(db.Account{Username: "root", Tier: db.TierRetail, Roles: []string{db.RoleAdmin}})
	_ = admin

	mw := auth.Middleware{Service: svc}
	var seen account.Account
	handler := mw.RequireAuth(auth.RequireRole(db.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = account.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/reports", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	plain := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := common.AccountID(r.Context())
		require.True(t, ok)
		require.Equal(t, res.Account.ID, id)
		w.WriteHeader(http.StatusNoContent)
	}))
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rec = httptest.NewRecorder()
	plain.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, seen.ID)
}

func TestHandlerLoginSetsCookie(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), auth.RegisterInput{Username: "eva", Email: "eva@ecofor.cl", Password: "password1"})
	require.NoError(t, err)

	h := &auth.Handler{Service: svc, AccessCookieName: "ecofor_access"}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"eva","password":"password1"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data auth.LoginResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "ecofor_access", cookies[0].Name)

	mw := auth.Middleware{Service: svc, AccessCookie: "ecofor_access"}
	me := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	me.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	mw.RequireAuth(http.HandlerFunc(h.Me)).ServeHTTP(rec, me)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"business":false`)
}
