//go:build linux || darwin

package gate

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// #region disk-volume
// DiskVolume reports the space available to unprivileged writers on the
// filesystem holding Dir.
type DiskVolume struct {
	Dir string
}

func (v DiskVolume) Free(context.Context) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(v.Dir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", v.Dir, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

// #endregion disk-volume
