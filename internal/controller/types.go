package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/display"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/gate"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/policy"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/signals"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/sound"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/tablelog"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/task"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/update"
)

// #region mode
// Mode is the controller state.
type Mode string

const (
	ModeRunning     Mode = "running"
	ModeDebugStep   Mode = "debug_step"
	ModeExploit     Mode = "exploit"
	ModeTerminating Mode = "terminating"
)

// #endregion mode

// #region config
// Config holds the experiment parameters. Name and Environment default to
// the task's own when empty.
type Config struct {
	Name          string
	Environment   string
	NStates       int
	NActions      int
	Update        update.Config
	Policy        policy.Config
	Init          table.InitConfig
	StepTime      time.Duration
	NSteps        int
	Deploy        bool  // start in exploit mode, no learning
	Seed          int64 // action selection rng
	SnapshotEvery int   // steps between run store snapshots, 0 for end of run only
}

// DefaultConfig returns the Simple_1 experiment: 4 states, 4 actions,
// 1000 steps of 250ms.
func DefaultConfig() Config {
	return Config{
		Name:          "Simple_1",
		NStates:       4,
		NActions:      4,
		Update:        update.DefaultConfig(),
		Policy:        policy.DefaultConfig(),
		Init:          table.DefaultInitConfig(),
		StepTime:      250 * time.Millisecond,
		NSteps:        1000,
		Seed:          1,
		SnapshotEvery: 100,
	}
}

var (
	ErrTaskMismatch   = errors.New("task dimensions do not match the table")
	ErrResumeMismatch = errors.New("resume record does not match the table")
)

// Validate reports configuration errors. They are fatal before any step.
func (c Config) Validate() error {
	if c.Name != "" {
		if err := tablelog.ValidateName(c.Name); err != nil {
			return fmt.Errorf("config name: %w", err)
		}
	}
	if c.NStates < 1 || c.NActions < 1 {
		return fmt.Errorf("config: %w: %d states, %d actions", table.ErrDimensions, c.NStates, c.NActions)
	}
	if c.Init.InitialPolicy < 1 || int(c.Init.InitialPolicy) > c.NActions {
		return fmt.Errorf("config: initial policy %d outside [1, %d]", c.Init.InitialPolicy, c.NActions)
	}
	if c.StepTime <= 0 {
		return fmt.Errorf("config: step time must be positive, got %s", c.StepTime)
	}
	if c.NSteps < 1 {
		return fmt.Errorf("config: steps must be at least 1, got %d", c.NSteps)
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("config: snapshot interval must not be negative")
	}
	p := c.Policy
	if p.ExploitPercent < 0 || p.ExploitPercent > 100 || p.LeastExploredPercent < 0 || p.LeastExploredPercent > 100 {
		return fmt.Errorf("config: policy percents must be in [0, 100]")
	}
	if err := c.Update.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// #endregion config

// #region clock
// Clock paces steps. Sleep returns early with ctx's error when ctx is done.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// #endregion clock

// #region deps
// Deps are the collaborators of a run. Task, Operator and Gate are
// required; the rest may be left nil.
type Deps struct {
	Task     task.Task
	Operator signals.Operator
	Gate     *gate.Gate
	LogDir   string // where <name>.log is appended, "." when empty
	Screen   *display.Screen
	Player   sound.Player
	Clock    Clock
	Store    *runstore.Store
	Resume   *tablelog.Record // table to start from instead of the initial one
}

// #endregion deps

// #region summary
// Summary reports how a run ended.
type Summary struct {
	RunID       string
	Steps       int // completed steps
	Updates     int // steps that changed the table
	TotalReward float64
	Mode        Mode // mode when the loop exited
	Interrupted bool // ctx was cancelled before the run finished
	Persisted   bool
	Path        string // log file written, empty when refused
	Guard       gate.GateDecision
	Optimal     bool // greedy policy matched the task's optimum at the end
}

// #endregion summary
