// Package jobs 负责注册与实现存储维护定时任务（基于 scheduler）.
//
//   - 容量上报：更新容量指标，剩余空间低于阈值时发布 sv.storage.full
//   - 孤儿回收：删除超过宽限期且没有任何文件记录引用的数据块
package jobs

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/scheduler"
)

// RegisterCronJobs 按配置注册维护任务. pub 为 nil 时容量告警只记录日志.
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, coord *service.Coordinator, pub message.Publisher, cfg *configs.AppConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if coord == nil {
		return errors.New("storage coordinator is nil")
	}

	if !cfg.Jobs.Enabled {
		return nil
	}

	if !cfg.Events.Enabled || !cfg.Events.Storage.StorageFull {
		pub = nil
	}

	reporter := NewCapacityReporter(coord, pub)
	if err := sched.AddCron(ctx, JobCapacityReport, cfg.Jobs.CapacityCron, func(ctx context.Context) error {
		_, err := reporter.Run(ctx)
		return err
	}); err != nil {
		return err
	}

	sweeper := NewOrphanSweeper(coord.Blobs(), coord.Catalog(), SweepConfig{
		Grace:     cfg.Jobs.OrphanGrace,
		Rate:      cfg.Jobs.SweepRate,
		Burst:     cfg.Jobs.SweepBurst,
		BatchSize: cfg.Jobs.SweepBatchSize,
	})

	return sched.AddCron(ctx, JobOrphanSweep, cfg.Jobs.OrphanCron, func(ctx context.Context) error {
		_, err := sweeper.Run(ctx)
		return err
	})
}
