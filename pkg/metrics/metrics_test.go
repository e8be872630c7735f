package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/metrics"
)

// TestObserveOperation 测试操作计数按结果累加.
func TestObserveOperation(t *testing.T) {
	before := testutil.ToFloat64(metrics.Operations.WithLabelValues("store_file", metrics.OutcomeExists))

	metrics.ObserveOperation("store_file", metrics.OutcomeExists, 5*time.Millisecond)
	metrics.ObserveOperation("store_file", metrics.OutcomeExists, 5*time.Millisecond)

	after := testutil.ToFloat64(metrics.Operations.WithLabelValues("store_file", metrics.OutcomeExists))
	assert.InDelta(t, 2, after-before, 0.001)

	metrics.SetCapacity(100, 40, 60)
	assert.InDelta(t, 60, testutil.ToFloat64(metrics.Capacity.WithLabelValues("available")), 0.001)
}

// TestMetricsEndpoint 测试 /metrics 导出存储指标.
func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := configs.Default().Metrics
	cfg.RuntimeMetrics = false
	require.NoError(t, metrics.InitMetrics(cfg))
	require.NoError(t, metrics.InitMetrics(cfg), "idempotent")

	metrics.BytesWritten.Add(3)

	engine := gin.New()
	metrics.StartMetricsServer(cfg, true, engine)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storevault_bytes_written_total")

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
