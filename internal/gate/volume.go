package gate

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/c2h5oh/datasize"
)

// #region fixed-volume
// FixedVolume reports a constant amount of free space.
type FixedVolume int64

func (v FixedVolume) Free(context.Context) (int64, error) {
	return int64(v), nil
}

// #endregion fixed-volume

// #region budget-volume
// BudgetVolume caps a directory at a byte budget, mimicking the brick's
// small flash: free space is the budget minus the size of every file
// already stored under Dir.
type BudgetVolume struct {
	Dir    string
	Budget datasize.ByteSize
}

// NewBudgetVolume parses budget strings such as "64KB" or "1MB".
func NewBudgetVolume(dir, budget string) (*BudgetVolume, error) {
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(budget)); err != nil {
		return nil, fmt.Errorf("parse budget %q: %w", budget, err)
	}
	return &BudgetVolume{Dir: dir, Budget: size}, nil
}

func (v *BudgetVolume) Free(ctx context.Context) (int64, error) {
	used, err := dirSize(ctx, v.Dir)
	if err != nil {
		return 0, err
	}
	return int64(v.Budget.Bytes()) - used, nil
}

func (v *BudgetVolume) String() string {
	return fmt.Sprintf("%s budget in %s", v.Budget.HumanReadable(), v.Dir)
}

func dirSize(ctx context.Context, dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("size of %s: %w", dir, err)
	}
	return total, nil
}

// #endregion budget-volume
