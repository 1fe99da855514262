//go:build !(linux || darwin)

package gate

import (
	"context"
	"errors"
)

// DiskVolume is unavailable on this platform; use BudgetVolume instead.
type DiskVolume struct {
	Dir string
}

func (v DiskVolume) Free(context.Context) (int64, error) {
	return 0, errors.New("disk free space not supported on this platform")
}
