package task

import (
	"context"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region task-interface
// Task defines what state, action and reward mean for one physical task.
// ObserveState must be total: every sensor combination maps to a state in
// [1, NumStates]. ExecuteAction treats actions outside [1, NumActions] as
// no-ops.
type Task interface {
	Name() string
	Environment() string
	NumStates() int
	NumActions() int
	ObserveState(ctx context.Context) table.State
	ExecuteAction(ctx context.Context, a table.Action)
	ObtainReward(s table.State, a table.Action, sp table.State) float64
}

// OptimalKnower is implemented by tasks whose optimal policy is known, so a
// run can report when the learned greedy policy has converged to it.
type OptimalKnower interface {
	OptimalActions(s table.State) []table.Action
}

// #endregion task-interface
