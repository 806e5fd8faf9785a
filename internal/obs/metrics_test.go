package obs_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/obs"
)

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{5, 25.5, 100}, obs.ParseBucketsCSV(" 5, 25.5 ,,abc,-1,0,100"))
	require.Empty(t, obs.ParseBucketsCSV(""))
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("ecofor", []float64{100, 10}, registry)
	first.ReqTotal.WithLabelValues("GET", "/x", "200").Inc()

	second := obs.NewHTTPMetrics("ecofor", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
	require.Equal(t, 1.0, testutil.ToFloat64(second.ReqTotal.WithLabelValues("GET", "/x", "200")))
}

func TestDurationMillis(t *testing.T) {
	require.InDelta(t, 1.5, obs.DurationMillis(1500*time.Microsecond), 1e-9)
}
