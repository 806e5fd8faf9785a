package auth

import (
	"cmp"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/common"
)

var (
	errNoToken       = errors.New("auth: token missing")
	errNotConfigured = errors.New("auth: service not configured")
)

// Middleware resolves the caller from a bearer token or, failing that, the
// access cookie.
type Middleware struct {
	Service      *Service
	AccessCookie string
}

// Authenticate attaches the account when the request carries a valid token.
// Anonymous requests and bad tokens continue unauthenticated.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authed, err := m.attach(r); err == nil {
			r = authed
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless an account is already attached or the
// request carries a valid token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := account.FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		authed, err := m.attach(r)
		if err != nil {
			writeUnauthorized(w, err)
			return
		}
		next.ServeHTTP(w, authed)
	})
}

// RequireRole rejects accounts that hold none of roles. It must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acct, ok := account.FromContext(r.Context())
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			if !slices.ContainsFunc(roles, acct.HasRole) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	if appErr, ok := common.AsAppError(err); ok {
		common.JSONError(w, cmp.Or(appErr.HTTPStatus, http.StatusUnauthorized), appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
}

// attach returns r carrying the authenticated account, and tags the
// request logger with its id.
func (m Middleware) attach(r *http.Request) (*http.Request, error) {
	if m.Service == nil {
		return nil, errNotConfigured
	}
	token := m.token(r)
	if token == "" {
		return nil, errNoToken
	}
	acct, err := m.Service.Authenticate(r.Context(), token)
	if err != nil {
		return nil, err
	}
	ctx := account.NewContext(common.WithAccountID(r.Context(), acct.ID), acct)
	zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Int64("account_id", acct.ID)
	})
	return r.WithContext(ctx), nil
}

func (m Middleware) token(r *http.Request) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok
		}
	}
	if m.AccessCookie == "" {
		return ""
	}
	if c, err := r.Cookie(m.AccessCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
