package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/GoStorefront/pkg/compose"
)

var _ compose.MetricsRecorder = (*Recorder)(nil)

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorderExports(t *testing.T) {
	r := NewRecorder(false)
	ctx := context.Background()
	r.Observe(ctx, "fetch", "ok", 10*time.Millisecond)
	r.Observe(ctx, "fetch", "ok", 5*time.Millisecond)
	r.Observe(ctx, "fetch", "not_found", time.Millisecond)
	r.Observe(ctx, "", "ok", time.Millisecond)
	r.UnknownBlock("hero_banner")

	out := scrape(t, r)
	assert.Contains(t, out, `storefront_engine_operations_total{operation="fetch",outcome="ok"} 2`)
	assert.Contains(t, out, `storefront_engine_operations_total{operation="fetch",outcome="not_found"} 1`)
	assert.Contains(t, out, `storefront_engine_operation_duration_seconds_count{operation="fetch"} 3`)
	assert.Contains(t, out, `storefront_unknown_blocks_total{block="hero_banner"} 1`)
	assert.NotContains(t, out, `operation=""`)
	assert.NotContains(t, out, "go_goroutines")
}

func TestRuntimeCollectors(t *testing.T) {
	assert.Contains(t, scrape(t, NewRecorder(true)), "go_goroutines")
}

func TestMiddlewareCountsStatus(t *testing.T) {
	r := NewRecorder(false)
	h := r.Middleware("product", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/missing" {
			http.NotFound(w, req)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, p := range []string{"/a", "/b", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	out := scrape(t, r)
	assert.Contains(t, out, `storefront_http_requests_total{code="200",route="product"} 2`)
	assert.Contains(t, out, `storefront_http_requests_total{code="404",route="product"} 1`)
}
