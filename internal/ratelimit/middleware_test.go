package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/ratelimit"
	"github.com/noah-isme/ecofor-market/internal/session"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	_, client := newRedis(t)
	handler := ratelimit.Handler{
		Limiter: ratelimit.Sliding{Client: client, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    func(*http.Request) string { return "static" },
			Window: time.Second,
			Max:    1,
		},
	}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	called := false
	handler := ratelimit.Handler{
		Limiter: ratelimit.Sliding{Client: client},
		Config: ratelimit.Config{
			Key:    func(*http.Request) string { return "err" },
			Window: time.Second,
			Max:    1,
		},
		OnError: func(error) { called = true },
	}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestSlidingWindowRecovers(t *testing.T) {
	mr, client := newRedis(t)
	limiter := ratelimit.Sliding{Client: client, Prefix: "test:"}
	ctx := context.Background()
	window := 2 * time.Second

	for i := range 2 {
		allowed, remaining, _, err := limiter.Allow(ctx, "key", window, 2)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, 2-(i+1), remaining)
	}
	allowed, remaining, _, err := limiter.Allow(ctx, "key", window, 2)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	mr.FastForward(window)
	allowed, _, _, err = limiter.Allow(ctx, "key", window, 2)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestFixedLimiterCountsPerKey(t *testing.T) {
	limiter := ratelimit.Fixed{Store: memory.NewStore()}
	ctx := context.Background()

	for range 3 {
		allowed, _, _, err := limiter.Allow(ctx, "login:1.2.3.4", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, remaining, reset, err := limiter.Allow(ctx, "login:1.2.3.4", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
	require.True(t, reset.After(time.Now()))

	allowed, _, _, err = limiter.Allow(ctx, "login:5.6.7.8", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestKeyFuncs(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	require.Equal(t, "login:10.0.0.9", ratelimit.ByIP("login:")(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "login:203.0.113.7", ratelimit.ByIP("login:")(req))

	byCaller := ratelimit.ByCaller("orders:")
	require.Empty(t, byCaller(httptest.NewRequest(http.MethodPost, "/", nil)))

	withSession := httptest.NewRequest(http.MethodPost, "/", nil)
	withSession = withSession.WithContext(session.NewContext(withSession.Context(), "abc"))
	require.Equal(t, "orders:sess:abc", byCaller(withSession))

	withAccount := withSession.WithContext(account.NewContext(withSession.Context(), account.Account{ID: 42}))
	require.Equal(t, "orders:acct:42", byCaller(withAccount))
}
