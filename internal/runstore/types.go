package runstore

import (
	"time"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region run-record
// RunRecord describes one learning run from start to finish.
type RunRecord struct {
	RunID         string
	Task          string
	Environment   string
	Rule          string
	Gamma         float64
	Alpha         float64
	Schedule      string // alpha schedule, "constant" when empty
	Decay         float64
	MinAlpha      float64
	InitialPolicy int
	InitialBias   float64
	NStates       int
	NActions      int
	NSteps        int
	StartedAt     time.Time
	FinishedAt    time.Time // zero while running
	StepsDone     int
	TotalReward   float64
	FinalMode     string
	Interrupted   bool
	Persisted     bool
}
// #endregion run-record

// #region run-result
// RunResult carries the counters written when a run ends.
type RunResult struct {
	StepsDone   int
	TotalReward float64
	FinalMode   string
	Interrupted bool
	Persisted   bool
	FinishedAt  time.Time
}
// #endregion run-result

// #region snapshot
// Snapshot is a stored copy of the value table at a given step.
type Snapshot struct {
	SnapshotID string
	RunID      string
	Step       int
	NStates    int
	NActions   int
	Entries    []table.Entry
	CreatedAt  time.Time
}
// #endregion snapshot

// #region transition-row
// TransitionRow is one logged control step, as read back for replay.
type TransitionRow struct {
	RunID      string
	Step       int
	State      table.State
	Action     table.Action
	Reward     float64
	NextState  table.State
	NextAction table.Action // 0 when the rule did not need it
	Strategy   string
	Mode       string
	Updated    bool
	Alpha      float64
	TDError    float64
	CreatedAt  time.Time
}
// #endregion transition-row
