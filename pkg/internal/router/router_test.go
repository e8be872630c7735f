package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/catalog"
	"github.com/yeisme/storevault/pkg/internal/router"
	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/internal/storage"
	"github.com/yeisme/storevault/pkg/internal/storage/blob"
	"github.com/yeisme/storevault/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/storevault/pkg/internal/types"
	"github.com/yeisme/storevault/pkg/internal/users"
	"github.com/yeisme/storevault/pkg/metrics"
	"github.com/yeisme/storevault/pkg/scheduler"
)

func newEngine(t *testing.T) (*gin.Engine, *service.Coordinator) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := configs.Default()
	require.NoError(t, metrics.InitMetrics(cfg.Metrics))

	client := dbtest.Open(t)

	blobs, err := blob.NewLocal(t.TempDir(), 0o750, 0o640)
	require.NoError(t, err)

	mgr := &storage.Manager{DB: client, Blob: blobs}

	dir := users.New(client.DB)
	_, err = dir.Create(context.Background(), "alice", users.WithID(1))
	require.NoError(t, err)

	coord, err := service.New(cfg.Storage, catalog.New(client.DB), dir, blobs)
	require.NoError(t, err)

	sched, err := scheduler.NewScheduler()
	require.NoError(t, err)
	require.NoError(t, sched.AddCron(context.Background(), "noop", "0 0 1 1 *", func(context.Context) error { return nil }))

	return router.New(&cfg, router.Deps{Manager: mgr, Coordinator: coord, Scheduler: sched}), coord
}

func do(e *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(method, path, nil))

	return w
}

// TestHealthRoutes 测试健康检查路由.
func TestHealthRoutes(t *testing.T) {
	e, _ := newEngine(t)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz").Code)

	w := do(e, http.MethodGet, "/healthz/ready")
	require.Equal(t, http.StatusOK, w.Code)

	var ready struct {
		Components []struct {
			Component string `json:"component"`
			Status    string `json:"status"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	require.Len(t, ready.Components, 2)
	assert.Equal(t, "blob", ready.Components[0].Component)
	assert.Equal(t, "db", ready.Components[1].Component)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz/db").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/healthz/kv").Code)
}

// TestCapacityRoute 测试容量查询路由.
func TestCapacityRoute(t *testing.T) {
	e, coord := newEngine(t)

	_, err := coord.CreateBucket(context.Background(), &types.CreateBucketRequest{UserID: 1, Bucket: "docs"})
	require.NoError(t, err)

	w := do(e, http.MethodGet, "/api/v1/capacity")
	require.Equal(t, http.StatusOK, w.Code)

	var info types.CapacityInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, int64(1), info.Buckets)
	assert.Equal(t, "local", info.Backend)
}

// TestJobRoutes 测试任务列表与立即执行路由.
func TestJobRoutes(t *testing.T) {
	e, _ := newEngine(t)

	w := do(e, http.MethodGet, "/api/v1/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"noop"`)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPost, "/api/v1/jobs/missing/run").Code)
}

// TestMetricsRoute 测试 HTTP 指标按路由模板记录，未匹配的请求归为 unmatched.
func TestMetricsRoute(t *testing.T) {
	e, _ := newEngine(t)

	do(e, http.MethodGet, "/healthz")
	do(e, http.MethodGet, "/no/such/route")

	w := do(e, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `endpoint="/healthz"`))
	assert.True(t, strings.Contains(body, `endpoint="unmatched"`))
}
