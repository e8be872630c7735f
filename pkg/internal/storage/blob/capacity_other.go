//go:build windows

package blob

func volumeStats(string) (total, used, available int64, err error) {
	return 0, 0, 0, ErrCapacityUnsupported
}
