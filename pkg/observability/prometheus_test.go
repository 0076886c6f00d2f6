package observability_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbcore/pkg/observability"
	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
)

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	return string(body)
}

func TestPrometheusHandler_ServesTargetInfo(t *testing.T) {
	t.Parallel()

	handler, _, err := observability.PrometheusHandler()
	require.NoError(t, err)

	assert.Contains(t, scrape(t, handler), "target_info")
}

func TestPrometheusHandler_ExposesTreeMetrics(t *testing.T) {
	t.Parallel()

	handler, provider, err := observability.PrometheusHandler()
	require.NoError(t, err)

	metrics, err := observability.NewTreeMetrics(provider.Meter("test"))
	require.NoError(t, err)

	metrics.RecordStats(context.Background(), 0, rbtree.Stats{Rotations: 3, Links: 2})

	body := scrape(t, handler)
	assert.Contains(t, body, "rbcore_rotations")
	assert.Contains(t, body, "rbcore_ops")
}
