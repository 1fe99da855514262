package logging

import "time"

// #region transition-entry
// TransitionEntry is a single row in the transitions table.
type TransitionEntry struct {
	RunID      string
	Step       int
	State      int
	Action     int
	Reward     float64
	NextState  int
	NextAction int    // 0 unless the update rule needed it
	Strategy   string // "greedy" | "random" | "least_explored"
	Mode       string // controller mode during the step
	Updated    bool   // false in exploit mode
	Alpha      float64
	TDError    float64
	CreatedAt  time.Time
}
// #endregion transition-entry
