package common

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client-chosen key.
const IdempotencyHeader = "Idempotency-Key"

const idemPending = "pending"

// Idem rejects a second request carrying the same Idempotency-Key for the
// same method, path and account within TTL. A first attempt that ends in a
// 5xx releases the key so the client may retry.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func (i Idem) ttl() time.Duration {
	if i.TTL > 0 {
		return i.TTL
	}
	return 24 * time.Hour
}

func idemKey(r *http.Request, key string) string {
	scope := "anon"
	if id, ok := AccountID(r.Context()); ok {
		scope = strconv.FormatInt(id, 10)
	}
	return "idem:" + Sha256Hex(r.Method, r.URL.Path, scope, key)
}

func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		if len(header) > 255 {
			JSONError(w, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "idempotency key too long", nil)
			return
		}
		key := idemKey(r, header)
		ok, err := i.R.SetNX(r.Context(), key, idemPending, i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable", nil)
			return
		}
		if !ok {
			i.rejectReplay(w, r, key)
			return
		}

		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		completed := false
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if !completed || rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(ctx, key).Err()
				return
			}
			_ = i.R.Set(ctx, key, strconv.Itoa(rec.status), redis.KeepTTL).Err()
		}()
		next.ServeHTTP(rec, r)
		completed = true
	})
}

func (i Idem) rejectReplay(w http.ResponseWriter, r *http.Request, key string) {
	stored, err := i.R.Get(r.Context(), key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable", nil)
		return
	}
	if stored == idemPending {
		JSONError(w, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this key is still being processed", nil)
		return
	}
	var details any
	if status, err := strconv.Atoi(stored); err == nil {
		details = map[string]any{"status": status}
	}
	JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", details)
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(p []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(p)
}
