package update

import "github.com/danielpatrickdp/bumplearn/go-controller/internal/table"

// #region rule
// Rule selects how the TD target is computed.
type Rule string

const (
	RuleQLearning Rule = "qlearning" // r + gamma * max_a' Q(s', a')
	RuleSARSA     Rule = "sarsa"     // r + gamma * Q(s', a'') with a'' the next chosen action
)
// #endregion rule

// #region schedule
// Schedule selects how alpha evolves with the visit count of (s, a).
type Schedule string

const (
	ScheduleConstant Schedule = "constant"
	ScheduleHarmonic Schedule = "harmonic" // InitialAlpha / (1 + Decay*visits), floored at MinAlpha
)
// #endregion schedule

// #region transition
// Transition is one (s, a, r, s') step. AP is the action that will be taken
// at SP and is only read by the SARSA rule.
type Transition struct {
	S      table.State
	A      table.Action
	Reward float64
	SP     table.State
	AP     table.Action
}
// #endregion transition

// #region decision
// Decision records what the engine did with a transition.
type Decision struct {
	Action string // always "commit"; updates are never skipped
	Reason string
}
// #endregion decision

// #region result
// Result bundles everything returned by Apply.
type Result struct {
	Decision Decision
	Alpha    float64
	Target   float64
	TDError  float64
	Old      float64
	New      float64
	Visits   uint32 // visit count after the update
}
// #endregion result

// #region update-config
// Config holds the learning parameters.
type Config struct {
	Rule         Rule
	Gamma        float64  // discount factor
	InitialAlpha float64  // learning rate at zero visits
	Schedule     Schedule // alpha decay policy
	Decay        float64  // harmonic decay coefficient
	MinAlpha     float64  // harmonic floor, must stay > 0
}

// DefaultConfig returns the parameters tuned on the brick.
func DefaultConfig() Config {
	return Config{
		Rule:         RuleQLearning,
		Gamma:        0.9,
		InitialAlpha: 0.02,
		Schedule:     ScheduleConstant,
		Decay:        0.01,
		MinAlpha:     0.001,
	}
}
// #endregion update-config
