package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/storage/blob"
	"github.com/yeisme/storevault/pkg/log"
	"github.com/yeisme/storevault/pkg/metrics"
)

// Referencer 判断磁盘文件名是否仍被文件记录引用，catalog.Catalog 实现该接口.
type Referencer interface {
	ReferencedStoredNames(ctx context.Context, names []string) (map[string]struct{}, error)
}

// SweepConfig 孤儿回收参数.
type SweepConfig struct {
	Grace     time.Duration // 修改时间晚于 now-Grace 的数据块不处理
	Rate      float64       // 每秒最多删除的数据块数
	Burst     int
	BatchSize int // 每次查询引用关系的文件名数量
}

// SweepReport 一次回收的统计.
type SweepReport struct {
	Scanned int `json:"scanned"`
	Young   int `json:"young"`
	Pending int `json:"pending"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// OrphanSweeper 回收没有文件记录引用的数据块：记录写入失败后的残留、删除时未能移除的数据块、
// 以及中断写入留下的临时文件.
type OrphanSweeper struct {
	blobs   blob.Store
	refs    Referencer
	cfg     SweepConfig
	limiter *rate.Limiter
	now     func() time.Time
	logger  *zerolog.Logger
}

// SweepOption 回收任务选项.
type SweepOption func(*OrphanSweeper)

// WithClock 指定时钟，测试使用.
func WithClock(now func() time.Time) SweepOption {
	return func(s *OrphanSweeper) { s.now = now }
}

// NewOrphanSweeper 创建孤儿回收任务.
func NewOrphanSweeper(blobs blob.Store, refs Referencer, cfg SweepConfig, opts ...SweepOption) *OrphanSweeper {
	if cfg.Grace <= 0 {
		cfg.Grace = configs.DefaultOrphanGrace
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = configs.DefaultSweepBatchSize
	}

	if cfg.Burst <= 0 {
		cfg.Burst = configs.DefaultSweepBurst
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}

	s := &OrphanSweeper{
		blobs:   blobs,
		refs:    refs,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		now:     time.Now,
		logger:  log.Component("jobs.sweep"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run 遍历物理存储并回收孤儿数据块.
func (s *OrphanSweeper) Run(ctx context.Context) (SweepReport, error) {
	var (
		report SweepReport
		batch  = make([]blob.Object, 0, s.cfg.BatchSize)
	)

	cutoff := s.now().Add(-s.cfg.Grace)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		names := make([]string, len(batch))
		for i, obj := range batch {
			names[i] = obj.Name
		}

		refs, err := s.refs.ReferencedStoredNames(ctx, names)
		if err != nil {
			return err
		}

		for _, obj := range batch {
			if _, ok := refs[obj.Name]; ok {
				continue
			}

			if err := s.remove(ctx, obj, &report); err != nil {
				return err
			}
		}

		batch = batch[:0]

		return nil
	}

	err := s.blobs.Walk(ctx, func(obj blob.Object) error {
		report.Scanned++

		if obj.ModTime.After(cutoff) {
			report.Young++
			return nil
		}

		if blob.IsPending(obj.Name) {
			report.Pending++
			return s.remove(ctx, obj, &report)
		}

		batch = append(batch, obj)
		if len(batch) >= s.cfg.BatchSize {
			return flush()
		}

		return nil
	})
	if err == nil {
		err = flush()
	}

	ev := s.logger.Info()
	if err != nil {
		ev = s.logger.Error().Err(err)
	}

	ev.Int("scanned", report.Scanned).
		Int("removed", report.Removed).
		Int("failed", report.Failed).
		Msg("orphan sweep finished")

	return report, err
}

// remove 按限速删除一个数据块，删除失败只计数；只有 ctx 取消会中止遍历.
func (s *OrphanSweeper) remove(ctx context.Context, obj blob.Object, report *SweepReport) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := s.blobs.Remove(ctx, obj.Dir, obj.Name); err != nil {
		report.Failed++
		s.logger.Warn().Err(err).Str("dir", obj.Dir).Str("name", obj.Name).Msg("remove orphan")

		return nil
	}

	report.Removed++
	metrics.OrphansReclaimed.Inc()

	s.logger.Debug().Str("dir", obj.Dir).Str("name", obj.Name).Time("mod_time", obj.ModTime).Msg("orphan removed")

	return nil
}
