package tablelog

import (
	"errors"
	"regexp"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region constants
const (
	// MaxNameLen bounds the task identifier used to name the log file.
	MaxNameLen = 15
	// Suffix is appended to the task identifier to form the file name.
	Suffix = ".log"
)

var (
	ErrNameTooLong = errors.New("task name longer than 15 characters")
	ErrEmptyName   = errors.New("task name is empty")
	ErrNameChars   = errors.New("task name may only use letters, digits, '_' and '-'")
	ErrNoRecord    = errors.New("no complete record in log")
	ErrCorrupt     = errors.New("malformed log record")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// #endregion constants

// #region record
// Record is one persisted run: identity, counters and the full table.
type Record struct {
	Name          string
	Environment   string
	Steps         int
	States        int
	Actions       int
	Rule          string
	Gamma         float64
	Alpha         float64
	Schedule      string
	Decay         float64
	MinAlpha      float64
	InitialPolicy table.Action
	InitialBias   float64
	TotalReward   float64
	Entries       []table.Entry // state-major, action-minor
}

// Validate checks the identity fields and the table shape.
func (r Record) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if r.States < 1 || r.Actions < 1 {
		return table.ErrDimensions
	}
	if len(r.Entries) != r.States*r.Actions {
		return table.ErrMismatch
	}
	return nil
}

// ValidateName enforces the bounded task identifier. The name becomes a
// file name under the log directory and a header line, so only
// [A-Za-z0-9_-] is accepted.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if !namePattern.MatchString(name) {
		return ErrNameChars
	}
	return nil
}

// FileName returns the log file name for a task.
func FileName(name string) string {
	return name + Suffix
}
// #endregion record
