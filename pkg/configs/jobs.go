package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultCapacityCron   = "*/5 * * * *" // 每 5 分钟上报容量
	DefaultOrphanCron     = "30 3 * * *"  // 每天 03:30 回收孤儿数据
	DefaultOrphanGrace    = time.Hour     // 孤儿文件宽限期，避免误删写入中的文件
	DefaultSweepRate      = 50.0          // 每秒最多删除的文件数
	DefaultSweepBurst     = 10            // 删除突发容量
	DefaultSweepBatchSize = 200           // 每批查询目录中的文件数
)

// JobsConfig 定时维护任务配置.
type JobsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	CapacityCron   string        `mapstructure:"capacity_cron"    rule:"required"`
	OrphanCron     string        `mapstructure:"orphan_cron"      rule:"required"`
	OrphanGrace    time.Duration `mapstructure:"orphan_grace"`
	SweepRate      float64       `mapstructure:"sweep_rate"       rule:"gt=0"`
	SweepBurst     int           `mapstructure:"sweep_burst"      rule:"min=1"`
	SweepBatchSize int           `mapstructure:"sweep_batch_size" rule:"min=1"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.capacity_cron", DefaultCapacityCron)
	v.SetDefault("jobs.orphan_cron", DefaultOrphanCron)
	v.SetDefault("jobs.orphan_grace", DefaultOrphanGrace)
	v.SetDefault("jobs.sweep_rate", DefaultSweepRate)
	v.SetDefault("jobs.sweep_burst", DefaultSweepBurst)
	v.SetDefault("jobs.sweep_batch_size", DefaultSweepBatchSize)
}
