// Package metrics 提供 Prometheus 监控指标.
//
// 指标在包初始化时创建，InitMetrics 负责把它们注册到独立的注册表，
// 未注册时记录操作是安全的（只是不会被导出），因此单元测试无需初始化.
//
// Example:
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		return err
//	}
//
//	metrics.ObserveOperation("store_file", metrics.OutcomeOK, time.Since(start))
//	metrics.BytesWritten.Add(float64(n))
package metrics

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/storevault/pkg/configs"
)

const namespace = "storevault"

// 操作结果标签.
const (
	OutcomeOK       = "ok"
	OutcomeExists   = "exists"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// 全局指标变量.
var (
	// Operations 存储操作计数，按操作与结果分类.
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of storage operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// OperationDuration 存储操作耗时.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Storage operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// BytesWritten 写入的明文字节数.
	BytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_written_total",
		Help:      "Plaintext bytes accepted by store operations",
	})

	// BytesRead 读出的明文字节数.
	BytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_read_total",
		Help:      "Plaintext bytes returned by load operations",
	})

	// Capacity 物理存储容量，kind 为 total/used/available.
	Capacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity_bytes",
			Help:      "Blob backend capacity in bytes",
		},
		[]string{"kind"},
	)

	// OrphansReclaimed 被清理的孤儿数据块数量.
	OrphansReclaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphans_reclaimed_total",
		Help:      "Blobs removed because no catalog entry references them",
	})

	// RequestCounter 运维 HTTP 请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration 运维 HTTP 请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 注册全部指标，重复调用只生效一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	initOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(config.Labels, registry)

		// 注册标准收集器
		if config.RuntimeMetrics {
			if err = registry.Register(collectors.NewGoCollector()); err != nil {
				return
			}

			if err = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
				return
			}
		}

		for _, c := range []prometheus.Collector{
			Operations, OperationDuration, BytesWritten, BytesRead,
			Capacity, OrphansReclaimed, RequestCounter, RequestDuration,
		} {
			if err = reg.Register(c); err != nil {
				return
			}
		}
	})

	return err
}

// ObserveOperation 记录一次存储操作的结果与耗时.
func ObserveOperation(op, outcome string, d time.Duration) {
	Operations.WithLabelValues(op, outcome).Inc()
	OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetCapacity 更新容量指标.
func SetCapacity(total, used, available int64) {
	Capacity.WithLabelValues("total").Set(float64(total))
	Capacity.WithLabelValues("used").Set(float64(used))
	Capacity.WithLabelValues("available").Set(float64(available))
}

// Handler 返回 /metrics 处理器.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// StartMetricsServer 在运维引擎上挂载 /metrics，按需挂载 pprof.
func StartMetricsServer(config configs.MetricsConfig, pprofEnabled bool, debugEngine *gin.Engine) {
	if config.Enabled {
		debugEngine.GET("/metrics", gin.WrapH(Handler()))
	}

	if pprofEnabled {
		debugEngine.GET("/debug/pprof/*name", pprofHandler)
	}
}

// pprofHandler 按路径分发到 net/http/pprof 的各个处理器.
func pprofHandler(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")

	switch name {
	case "":
		pprof.Index(c.Writer, c.Request)
	case "cmdline":
		pprof.Cmdline(c.Writer, c.Request)
	case "profile":
		pprof.Profile(c.Writer, c.Request)
	case "symbol":
		pprof.Symbol(c.Writer, c.Request)
	case "trace":
		pprof.Trace(c.Writer, c.Request)
	default:
		pprof.Handler(name).ServeHTTP(c.Writer, c.Request)
	}
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
