package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/common"
)

func TestIdemRejectsReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	handler := common.Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(key string, accountID int64) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		if accountID > 0 {
			req = req.WithContext(common.WithAccountID(req.Context(), accountID))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusCreated, send("abc", 1))
	require.Equal(t, http.StatusConflict, send("abc", 1))
	require.Equal(t, http.StatusCreated, send("abc", 2))
	require.Equal(t, http.StatusCreated, send("", 1))
	require.Equal(t, http.StatusCreated, send("", 1))
	require.Equal(t, 4, calls)
}

func TestParseID(t *testing.T) {
	id, ok := common.ParseID("42")
	require.True(t, ok)
	require.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc"} {
		_, ok := common.ParseID(raw)
		require.False(t, ok, raw)
	}
	require.Equal(t, 7, common.AtoiDefault("x", 7))
}

func TestIdemReleasesKeyAfterServerError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	status := http.StatusInternalServerError
	handler := common.Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
		req.Header.Set(common.IdempotencyHeader, "k1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusInternalServerError, send().Code)
	require.Empty(t, mr.Keys())

	status = http.StatusCreated
	require.Equal(t, http.StatusCreated, send().Code)

	replay := send()
	require.Equal(t, http.StatusConflict, replay.Code)
	require.JSONEq(t, `{"error":{"code":"IDEMPOTENT_REPLAY","message":"duplicate request","details":{"status":201}}}`, replay.Body.String())
}

func TestIdemInProgress(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var inner *httptest.ResponseRecorder
	var mw http.Handler
	mw = common.Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inner == nil {
			inner = httptest.NewRecorder()
			mw.ServeHTTP(inner, r.Clone(r.Context()))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set(common.IdempotencyHeader, "same")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, http.StatusConflict, inner.Code)
	require.Contains(t, inner.Body.String(), "IDEMPOTENCY_IN_PROGRESS")
}
