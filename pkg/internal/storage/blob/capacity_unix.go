//go:build !windows

package blob

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// volumeStats 返回文件系统的总容量、已用与可用字节数，可用空间按非 root 用户计算.
func volumeStats(path string) (total, used, available int64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}

	bsize := int64(stat.Bsize) //nolint:unconvert
	total = int64(stat.Blocks) * bsize
	available = int64(stat.Bavail) * bsize
	used = total - int64(stat.Bfree)*bsize

	return total, used, available, nil
}
