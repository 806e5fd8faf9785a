package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type routeKey struct{}

// WithRoutePattern pins the route label reported for requests carrying ctx.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, pattern)
}

// RouteLabel names a request for metrics, logs and spans: a pinned pattern,
// else the chi pattern matched so far, else fallback. chi fills the pattern
// in as routing descends, so call it after the handler has run for the
// full pattern.
func RouteLabel(r *http.Request, fallback string) string {
	if p, _ := r.Context().Value(routeKey{}).(string); p != "" {
		return p
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return fallback
}
