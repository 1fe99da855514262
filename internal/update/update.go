package update

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region validate
// Validate rejects parameter sets that would freeze or diverge the table.
func (c Config) Validate() error {
	if c.Rule != RuleQLearning && c.Rule != RuleSARSA {
		return fmt.Errorf("unknown update rule %q", c.Rule)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma %.4f outside [0, 1]", c.Gamma)
	}
	if c.InitialAlpha <= 0 || c.InitialAlpha > 1 {
		return fmt.Errorf("initial alpha %.4f outside (0, 1]", c.InitialAlpha)
	}
	switch c.Schedule {
	case ScheduleConstant:
	case ScheduleHarmonic:
		if c.Decay < 0 {
			return errors.New("harmonic decay must be non-negative")
		}
		if c.MinAlpha <= 0 {
			return errors.New("harmonic schedule needs a positive alpha floor")
		}
	default:
		return fmt.Errorf("unknown alpha schedule %q", c.Schedule)
	}
	return nil
}
// #endregion validate

// #region engine
// Engine applies temporal-difference updates. It is the only writer of the
// table during a run.
type Engine struct {
	config Config
	target targetFunc
}

type targetFunc func(t table.Reader, tr Transition, gamma float64) float64

// NewEngine returns an engine for a validated config.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{config: config, target: qTarget}
	if config.Rule == RuleSARSA {
		e.target = sarsaTarget
	}
	return e, nil
}

// Config returns the engine parameters.
func (e *Engine) Config() Config {
	return e.config
}

// NeedsNextAction reports whether Apply reads Transition.AP.
func (e *Engine) NeedsNextAction() bool {
	return e.config.Rule == RuleSARSA
}
// #endregion engine

// #region targets
func qTarget(t table.Reader, tr Transition, gamma float64) float64 {
	return tr.Reward + gamma*t.Max(tr.SP)
}

func sarsaTarget(t table.Reader, tr Transition, gamma float64) float64 {
	return tr.Reward + gamma*t.Get(tr.SP, tr.AP)
}
// #endregion targets

// #region alpha
// Alpha returns the learning rate for an entry that has been visited
// visits times. The harmonic schedule never reaches zero.
func (e *Engine) Alpha(visits uint32) float64 {
	if e.config.Schedule != ScheduleHarmonic {
		return e.config.InitialAlpha
	}
	a := e.config.InitialAlpha / (1 + e.config.Decay*float64(visits))
	if a < e.config.MinAlpha {
		return e.config.MinAlpha
	}
	return a
}
// #endregion alpha

// #region apply
// Apply writes Q(s,a) += alpha * (target - Q(s,a)) and counts the visit.
func (e *Engine) Apply(t table.Writer, tr Transition) Result {
	old := t.Get(tr.S, tr.A)
	alpha := e.Alpha(t.Visits(tr.S, tr.A))
	target := e.target(t, tr, e.config.Gamma)
	tdErr := target - old
	next := old + alpha*tdErr

	t.Update(tr.S, tr.A, next)

	return Result{
		Decision: Decision{
			Action: "commit",
			Reason: fmt.Sprintf("%s s=%d a=%d r=%.2f s'=%d", e.config.Rule, tr.S, tr.A, tr.Reward, tr.SP),
		},
		Alpha:   alpha,
		Target:  target,
		TDError: tdErr,
		Old:     old,
		New:     next,
		Visits:  t.Visits(tr.S, tr.A),
	}
}
// #endregion apply
