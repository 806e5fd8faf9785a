// Package session assigns each browser a stable session id carried in a
// cookie. The cart is keyed by that id.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultCookieName is used when Middleware.CookieName is empty.
const DefaultCookieName = "ecofor_session"

type ctxKey struct{}

// NewContext stores the session id on ctx.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the session id set by Middleware.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Middleware issues the session cookie when the request carries none (or an
// unparsable one) and refreshes its expiry otherwise.
type Middleware struct {
	CookieName string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	TTL        time.Duration
	Now        func() time.Time
}

func (m Middleware) cookieName() string {
	if m.CookieName != "" {
		return m.CookieName
	}
	return DefaultCookieName
}

func (m Middleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Handler implements the chi middleware signature.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(m.cookieName()); err == nil {
			if parsed, err := uuid.Parse(strings.TrimSpace(c.Value)); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		cookie := &http.Cookie{
			Name:     m.cookieName(),
			Value:    id,
			Path:     "/",
			Domain:   m.Domain,
			HttpOnly: true,
			Secure:   m.Secure,
			SameSite: m.SameSite,
		}
		if m.TTL > 0 {
			cookie.Expires = m.now().Add(m.TTL)
			cookie.MaxAge = int(m.TTL.Seconds())
		}
		http.SetCookie(w, cookie)
		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("session_id", id)
		})
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}
