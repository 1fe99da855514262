package task

import (
	"context"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/robot"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region wander-config
// WanderConfig tunes the wander-and-avoid task.
type WanderConfig struct {
	Name             string
	Environment      string
	MotorPower       int // [0, 100]
	ThresholdDegrees int // wheel rotation that counts as motion in the reward
}

// DefaultWanderConfig returns the "Simple_1" settings.
func DefaultWanderConfig() WanderConfig {
	return WanderConfig{
		Name:             "Simple_1",
		Environment:      robot.DefaultArena().Describe(),
		MotorPower:       50,
		ThresholdDegrees: 25,
	}
}

// #endregion wander-config

// #region wander
const (
	wanderStates  = 4 // no contact, left, right, both
	wanderActions = 4 // stop, turn left, turn right, forward
)

// Wander learns to roam while avoiding obstacles with two front bumpers.
//
// States:  1 no contact, 2 left contact, 3 right contact, 4 both contacts.
// Actions: 1 stop, 2 spin left, 3 spin right, 4 forward.
type Wander struct {
	cfg    WanderConfig
	driver robot.Driver
}

// NewWander binds the task to a driver.
func NewWander(cfg WanderConfig, driver robot.Driver) *Wander {
	return &Wander{cfg: cfg, driver: driver}
}

func (w *Wander) Name() string        { return w.cfg.Name }
func (w *Wander) Environment() string { return w.cfg.Environment }
func (w *Wander) NumStates() int      { return wanderStates }
func (w *Wander) NumActions() int     { return wanderActions }

// ObserveState encodes the bumpers as 1 + left + 2*right.
func (w *Wander) ObserveState(context.Context) table.State {
	left, right := w.driver.Bumpers()
	return table.State(1 + b2i(left) + 2*b2i(right))
}

// ExecuteAction issues the motion command for a.
func (w *Wander) ExecuteAction(_ context.Context, a table.Action) {
	switch a {
	case 1:
		w.driver.Execute(robot.Stop, w.cfg.MotorPower)
	case 2:
		w.driver.Execute(robot.TurnLeft, w.cfg.MotorPower)
	case 3:
		w.driver.Execute(robot.TurnRight, w.cfg.MotorPower)
	case 4:
		w.driver.Execute(robot.Forward, w.cfg.MotorPower)
	}
}

// ObtainReward scores the last step from the encoders and bumpers, then
// resets both encoders. A dual contact is always -50.
func (w *Wander) ObtainReward(_ table.State, _ table.Action, _ table.State) float64 {
	left := w.driver.RotationCount(robot.LeftWheel)
	right := w.driver.RotationCount(robot.RightWheel)
	bumpL, bumpR := w.driver.Bumpers()
	w.driver.ResetRotationCount(robot.LeftWheel)
	w.driver.ResetRotationCount(robot.RightWheel)

	th := w.cfg.ThresholdDegrees
	var r float64
	switch {
	case left > th && right > th:
		r = 10
	case left > th || right > th:
		r = 0.5
	}

	switch {
	case bumpL && bumpR:
		r = -50
	case bumpL || bumpR:
		r = -5
	}
	return r
}

// OptimalActions: go forward when free, spin away from a single contact,
// spin either way out of a corner.
func (w *Wander) OptimalActions(s table.State) []table.Action {
	switch s {
	case 1:
		return []table.Action{4}
	case 2:
		return []table.Action{3}
	case 3:
		return []table.Action{2}
	case 4:
		return []table.Action{2, 3}
	}
	return nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion wander
