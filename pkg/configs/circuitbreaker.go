package configs

import "github.com/spf13/viper"

const (
	// S3 数据块后端熔断器默认值，关闭时直接访问对象存储.
	DefaultCBEnabled           = false
	DefaultCBFailureRate       = 0.5
	DefaultCBMinRequests       = 20
	DefaultCBIntervalSeconds   = 60
	DefaultCBTimeoutSeconds    = 30
	DefaultCBMaxRequestsInHalf = 5
)

// CircuitBreakerConfig 包裹 S3 数据块读写的熔断器. 打开期间 Read/Write/Remove 立即失败，
// 存储协调器把失败当作普通 I/O 错误处理；local 后端忽略此配置.
type CircuitBreakerConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	FailureRate       float64 `mapstructure:"failure_rate"         rule:"gte=0,lte=1"` // 触发熔断的失败比例
	MinRequests       uint32  `mapstructure:"min_requests"`                           // 计算失败比例前至少需要的对象请求数
	IntervalSeconds   int     `mapstructure:"interval_seconds"     rule:"gte=0"`       // 关闭状态下计数清零的周期
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"      rule:"gte=0"`       // 打开多久后进入半开试探
	MaxRequestsInHalf uint32  `mapstructure:"max_requests_in_half"`                   // 半开状态放行的试探请求数
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", DefaultCBEnabled)
	v.SetDefault("circuit_breaker.failure_rate", DefaultCBFailureRate)
	v.SetDefault("circuit_breaker.min_requests", DefaultCBMinRequests)
	v.SetDefault("circuit_breaker.interval_seconds", DefaultCBIntervalSeconds)
	v.SetDefault("circuit_breaker.timeout_seconds", DefaultCBTimeoutSeconds)
	v.SetDefault("circuit_breaker.max_requests_in_half", DefaultCBMaxRequestsInHalf)
}
