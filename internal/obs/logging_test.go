package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/obs"
	"github.com/noah-isme/ecofor-market/internal/session"
)

func TestRequestLoggerCollectsInnerTags(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(obs.RequestLogger{Logger: zerolog.New(&buf)}.Middleware)
	r.Route("/api/v1", func(v chi.Router) {
		v.Use(session.Middleware{}.Handler)
		v.Get("/cart/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart/3", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "http_request", line["message"])
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "/api/v1/cart/{id}", line["route"])
	require.EqualValues(t, 404, line["status"])
	require.NotEmpty(t, line["request_id"])
	require.NotEmpty(t, line["session_id"])
}
