package service

import (
	"context"
	"errors"

	"github.com/yeisme/storevault/pkg/internal/storage/blob"
	"github.com/yeisme/storevault/pkg/internal/types"
)

// Capacity 汇总物理存储容量与元数据统计，仅用于上报，不参与放置决策.
// 后端无法报告容量时容量字段为零.
func (c *Coordinator) Capacity(ctx context.Context) (info *types.CapacityInfo, err error) {
	ctx, sc := c.begin(ctx, OpCapacity, 0, "")
	defer func() { sc.end(err) }()

	info = &types.CapacityInfo{
		ServerID: c.cfg.ServerID,
		Backend:  string(c.blobs.Backend()),
		Root:     c.blobs.Root(),
	}

	capa, err := c.blobs.Capacity(ctx)

	switch {
	case err == nil:
		info.TotalBytes = capa.Total
		info.UsedBytes = capa.Used
		info.AvailableBytes = capa.Available
		info.FreePercent = capa.FreePercent()
		info.Low = capa.Total > 0 && info.FreePercent < c.cfg.MinFreePercent
	case errors.Is(err, blob.ErrCapacityUnsupported):
		// 对象存储后端不报告容量
	default:
		return nil, err
	}

	stats, err := c.catalog.Stats(ctx)
	if err != nil {
		return nil, err
	}

	info.Buckets = stats.Buckets
	info.Folders = stats.Folders
	info.Files = stats.Files
	info.StoredBytes = stats.Bytes

	return info, nil
}
