package jobs

import (
	"context"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/storevault/pkg/internal/service"
	"github.com/yeisme/storevault/pkg/internal/types"
	"github.com/yeisme/storevault/pkg/log"
	"github.com/yeisme/storevault/pkg/metrics"
	"github.com/yeisme/storevault/pkg/queue"
)

// CapacityReporter 上报物理存储容量.
type CapacityReporter struct {
	coord  *service.Coordinator
	pub    message.Publisher
	logger *zerolog.Logger
}

// NewCapacityReporter 创建容量上报任务.
func NewCapacityReporter(coord *service.Coordinator, pub message.Publisher) *CapacityReporter {
	return &CapacityReporter{coord: coord, pub: pub, logger: log.Component("jobs.capacity")}
}

// Run 查询容量并更新指标，剩余空间不足时发布告警事件.
func (r *CapacityReporter) Run(ctx context.Context) (*types.CapacityInfo, error) {
	info, err := r.coord.Capacity(ctx)
	if err != nil {
		return nil, err
	}

	if info.TotalBytes > 0 {
		metrics.SetCapacity(info.TotalBytes, info.UsedBytes, info.AvailableBytes)
	}

	if !info.Low {
		r.logger.Debug().Float64("free_percent", info.FreePercent).Msg("capacity ok")
		return info, nil
	}

	minFree := r.coord.Config().MinFreePercent

	r.logger.Warn().
		Uint("server_id", info.ServerID).
		Float64("free_percent", info.FreePercent).
		Float64("min_free_percent", minFree).
		Msg("storage almost full")

	if r.pub != nil {
		err := queue.Publish(r.pub, queue.TopicStorageFull, queue.StorageFullPayload{
			ServerID:       info.ServerID,
			Backend:        info.Backend,
			Root:           info.Root,
			TotalBytes:     info.TotalBytes,
			AvailableBytes: info.AvailableBytes,
			FreePercent:    info.FreePercent,
			MinFreePercent: minFree,
		}, queue.WithProducer("storevault-"+strconv.FormatUint(uint64(info.ServerID), 10)))
		if err != nil {
			r.logger.Warn().Err(err).Msg("publish storage full")
		}
	}

	return info, nil
}
