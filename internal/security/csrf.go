package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/noah-isme/ecofor-market/internal/common"
)

const defaultCSRFName = "X-CSRF-Token"

// CSRF protects the cookie-keyed cart with the double-submit technique.
// Bearer-authenticated requests carry no ambient credentials and skip it.
type CSRF struct {
	Header   string
	Secure   bool
	SameSite http.SameSite
}

func (c CSRF) name() string {
	if name := strings.TrimSpace(c.Header); name != "" {
		return name
	}
	return defaultCSRFName
}

// Middleware rejects unsafe requests whose header token does not match the cookie.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	name := c.name()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(name))
		cookie, err := r.Cookie(name)
		if token == "" || err != nil || strings.TrimSpace(cookie.Value) == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_REQUIRED", "missing csrf token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF_INVALID", "invalid csrf token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Issue sets a fresh token cookie and returns the same token in the body so
// the frontend can echo it in the header.
func (c CSRF) Issue(w http.ResponseWriter, _ *http.Request) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not issue csrf token", nil)
		return
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	sameSite := c.SameSite
	if sameSite == http.SameSiteDefaultMode {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		Secure:   c.Secure,
		SameSite: sameSite,
	})
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"token": token}})
}
