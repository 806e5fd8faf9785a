package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMiddlewareIssuesAndKeepsSession(t *testing.T) {
	mw := Middleware{TTL: time.Hour}
	var seen string
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.NotEmpty(t, seen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, DefaultCookieName, cookies[0].Name)
	require.Equal(t, seen, cookies[0].Value)
	require.Equal(t, 3600, cookies[0].MaxAge)

	first := seen
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, first, seen)
}

func TestMiddlewareReplacesMalformedCookie(t *testing.T) {
	var seen string
	h := Middleware{}.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "../../etc"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEqual(t, "../../etc", seen)
	require.Len(t, seen, 36)
}
