package table

import "errors"

// #region indices
// State is a discretized sensory condition, numbered from 1.
type State int

// Action is a discretized motor command, numbered from 1.
type Action int
// #endregion indices

// #region errors
var (
	ErrDimensions = errors.New("table dimensions must be at least 1x1")
	ErrMismatch   = errors.New("table dimensions do not match")
)
// #endregion errors

// #region init-config
// InitConfig describes how entries are seeded at program start.
type InitConfig struct {
	InitialPolicy Action  // action biased at start (1 = stop in the wander task)
	InitialBias   float64 // estimate written to (s, InitialPolicy) for every s
}

// DefaultInitConfig returns an all-zero table whose greedy action is 1.
func DefaultInitConfig() InitConfig {
	return InitConfig{
		InitialPolicy: 1,
		InitialBias:   0,
	}
}
// #endregion init-config

// #region reader-writer
// Reader is the read-only view handed to the action selection policy.
type Reader interface {
	NumStates() int
	NumActions() int
	Get(s State, a Action) float64
	Visits(s State, a Action) uint32
	Greedy(s State) Action
	LeastExplored(s State) Action
	Max(s State) float64
}

// Writer is the view owned by the learning update engine.
type Writer interface {
	Reader
	Update(s State, a Action, estimate float64)
}
// #endregion reader-writer

// #region entry
// Entry is one (state, action) cell as exported for persistence.
type Entry struct {
	State    State
	Action   Action
	Estimate float64
	Visits   uint32
}
// #endregion entry
