package controller

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/eval"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/logging"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/policy"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/signals"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/sound"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/tablelog"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/task"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/update"
)

const noMemoryMessage = "Not enough Memory. Delete unnecessary NXT files"

// #region controller-struct

// Controller runs one learning experiment: it owns the table, the mode and
// the step counter, and talks to the task, operator and guard through Deps.
type Controller struct {
	cfg      Config
	deps     Deps
	table    *table.Table
	selector *policy.Selector
	engine   *update.Engine
	known    task.OptimalKnower // nil when the task has no reference policy
	mode     Mode
}

// #endregion

// #region constructor

// New validates the configuration, checks the task against the table
// dimensions and allocates the table. Nothing touches the robot yet.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Task == nil || deps.Operator == nil || deps.Gate == nil {
		return nil, fmt.Errorf("controller: task, operator and gate are required")
	}
	if cfg.Name == "" {
		cfg.Name = deps.Task.Name()
	}
	if cfg.Environment == "" {
		cfg.Environment = deps.Task.Environment()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Task.NumStates() != cfg.NStates || deps.Task.NumActions() != cfg.NActions {
		return nil, fmt.Errorf("%w: task %q has %d states, %d actions; table has %d, %d",
			ErrTaskMismatch, deps.Task.Name(), deps.Task.NumStates(), deps.Task.NumActions(), cfg.NStates, cfg.NActions)
	}

	tbl, err := table.New(cfg.NStates, cfg.NActions, cfg.Init)
	if err != nil {
		return nil, err
	}
	if deps.Resume != nil {
		if deps.Resume.States != cfg.NStates || deps.Resume.Actions != cfg.NActions {
			return nil, fmt.Errorf("%w: record %q is %dx%d", ErrResumeMismatch, deps.Resume.Name, deps.Resume.States, deps.Resume.Actions)
		}
		if err := tbl.Restore(deps.Resume.Entries); err != nil {
			return nil, fmt.Errorf("resume %q: %w", deps.Resume.Name, err)
		}
	}

	engine, err := update.NewEngine(cfg.Update)
	if err != nil {
		return nil, err
	}

	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.LogDir == "" {
		deps.LogDir = "."
	}
	known, _ := deps.Task.(task.OptimalKnower)

	mode := ModeRunning
	if cfg.Deploy {
		mode = ModeExploit
	}

	return &Controller{
		cfg:      cfg,
		deps:     deps,
		table:    tbl,
		selector: policy.NewSelector(cfg.Policy, rand.New(rand.NewSource(cfg.Seed))),
		engine:   engine,
		known:    known,
		mode:     mode,
	}, nil
}

// #endregion

// #region accessors

// Table returns the value table. It must not be written while Run is active.
func (c *Controller) Table() *table.Table { return c.table }

// Mode returns the current controller mode.
func (c *Controller) Mode() Mode { return c.mode }

// Config returns the validated configuration.
func (c *Controller) Config() Config { return c.cfg }

// #endregion

// #region run

// Run executes up to NSteps learning steps, then tries to persist the table.
// Persistence is attempted on every exit path, including cancellation.
// The returned error is non-nil only when an accepted write failed.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	c.beginRun(ctx, sum.RunID)

	var (
		s         table.State
		next      table.Action // SARSA action already chosen for s
		nextStrat policy.Strategy
	)

	for step := 1; step <= c.cfg.NSteps; step++ {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		if next == 0 {
			s = c.deps.Task.ObserveState(ctx)
		}

		if c.mode == ModeDebugStep {
			if !c.waitStep(ctx) {
				sum.Interrupted = ctx.Err() != nil
				break
			}
			if c.mode == ModeTerminating {
				break
			}
		}

		stepStart := c.deps.Clock.Now()

		exploit := c.mode == ModeExploit
		choice := policy.Choice{Action: next, Strategy: nextStrat}
		if next == 0 || exploit {
			choice = c.selector.Select(c.table, s, exploit)
		}
		next = 0

		c.deps.Task.ExecuteAction(ctx, choice.Action)

		cancelled := false
		if rest := c.cfg.StepTime - c.deps.Clock.Now().Sub(stepStart); rest > 0 {
			// a cancelled wait still finishes the step
			cancelled = c.deps.Clock.Sleep(ctx, rest) != nil
		}

		sp := c.deps.Task.ObserveState(ctx)
		r := c.deps.Task.ObtainReward(s, choice.Action, sp)

		entry := logging.TransitionEntry{
			RunID:     sum.RunID,
			Step:      step,
			State:     int(s),
			Action:    int(choice.Action),
			Reward:    r,
			NextState: int(sp),
			Strategy:  string(choice.Strategy),
			Mode:      string(c.mode),
		}

		if c.mode != ModeExploit {
			tr := update.Transition{S: s, A: choice.Action, Reward: r, SP: sp}
			if c.engine.NeedsNextAction() {
				nc := c.selector.Select(c.table, sp, false)
				tr.AP, next, nextStrat = nc.Action, nc.Action, nc.Strategy
				entry.NextAction = int(nc.Action)
			}
			res := c.engine.Apply(c.table, tr)
			entry.Updated, entry.Alpha, entry.TDError = true, res.Alpha, res.TDError
			sum.Updates++
		}

		sum.Steps = step
		sum.TotalReward += r
		c.report(step, choice, sp, r, sum.TotalReward, entry)

		c.handle(c.deps.Operator.Poll())

		if cancelled || ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		if c.mode == ModeTerminating {
			break
		}
		s = sp
	}

	sum.Mode = c.mode
	if c.known != nil {
		sum.Optimal = eval.IsOptimal(c.table, c.known)
	}
	err := c.endRun(context.WithoutCancel(ctx), &sum)
	return sum, err
}

// #endregion

// #region signals

// handle applies one operator signal to the mode. Exploit is sticky and
// ignores debug requests; terminate latches.
func (c *Controller) handle(sig signals.Signal) {
	if c.mode == ModeTerminating {
		return
	}
	switch sig {
	case signals.SignalDebug:
		switch c.mode {
		case ModeRunning:
			c.setMode(ModeDebugStep)
			c.play(sound.EventDebug)
		case ModeDebugStep:
			c.setMode(ModeRunning)
		}
	case signals.SignalExploit:
		if c.mode != ModeExploit {
			c.setMode(ModeExploit)
			c.play(sound.EventExploitation)
		}
	case signals.SignalTerminate:
		c.setMode(ModeTerminating)
	}
}

// waitStep blocks until the operator releases one debug step. It returns
// false when ctx ended the wait.
func (c *Controller) waitStep(ctx context.Context) bool {
	c.showRow("-- PAUSED --", 0)
	c.play(sound.EventPause)
	sig, err := c.deps.Operator.WaitStep(ctx)
	if err != nil {
		log.Printf("[CTRL] debug wait ended: %v", err)
		return false
	}
	c.handle(sig)
	return true
}

func (c *Controller) setMode(m Mode) {
	if m == c.mode {
		return
	}
	log.Printf("[CTRL] mode %s -> %s", c.mode, m)
	c.mode = m
	c.showRow(modeLabel(m), 1)
}

// #endregion

// #region lifecycle

func (c *Controller) beginRun(ctx context.Context, runID string) {
	log.Printf("[CTRL] run %s: task=%s env=%q rule=%s steps=%d mode=%s",
		runID, c.cfg.Name, c.cfg.Environment, c.cfg.Update.Rule, c.cfg.NSteps, c.mode)

	size, err := tablelog.Size(c.record(0, 0))
	if err == nil {
		d := c.deps.Gate.Check(ctx, size)
		c.show(d.Reason)
		if !d.Allowed() {
			log.Printf("[CTRL] warning: table may not fit at end of run: %s", d.Reason)
			c.show(noMemoryMessage)
			c.play(sound.EventError)
		}
	}

	if c.deps.Store != nil {
		err := c.deps.Store.CreateRun(runstore.RunRecord{
			RunID:         runID,
			Task:          c.cfg.Name,
			Environment:   c.cfg.Environment,
			Rule:          string(c.cfg.Update.Rule),
			Gamma:         c.cfg.Update.Gamma,
			Alpha:         c.cfg.Update.InitialAlpha,
			Schedule:      string(c.cfg.Update.Schedule),
			Decay:         c.cfg.Update.Decay,
			MinAlpha:      c.cfg.Update.MinAlpha,
			InitialPolicy: int(c.cfg.Init.InitialPolicy),
			InitialBias:   c.cfg.Init.InitialBias,
			NStates:       c.cfg.NStates,
			NActions:      c.cfg.NActions,
			NSteps:        c.cfg.NSteps,
			// wall time: the run clock may be simulated
			StartedAt: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("[CTRL] run store disabled: %v", err)
			c.deps.Store = nil
		}
	}

	c.play(sound.EventStart)
	c.show(c.cfg.Name)
	c.showRow(modeLabel(c.mode), 1)
}

// endRun checks the guard and appends the table to the log when it fits.
func (c *Controller) endRun(ctx context.Context, sum *Summary) error {
	var writeErr error
	rec := c.record(sum.Steps, sum.TotalReward)
	size, err := tablelog.Size(rec)
	if err != nil {
		writeErr = fmt.Errorf("size table record: %w", err)
	} else {
		sum.Guard = c.deps.Gate.Check(ctx, size)
		c.show(sum.Guard.Reason)
		if sum.Guard.Allowed() {
			path, err := tablelog.Append(c.deps.LogDir, rec)
			if err != nil {
				writeErr = err
			} else {
				sum.Persisted, sum.Path = true, path
				log.Printf("[CTRL] saved %d steps to %s", sum.Steps, path)
			}
		} else {
			c.show(noMemoryMessage)
		}
	}
	if writeErr != nil || !sum.Persisted {
		c.play(sound.EventError)
	}

	if c.deps.Store != nil {
		// a step on the snapshot interval already stored this table
		if c.cfg.SnapshotEvery == 0 || sum.Steps == 0 || sum.Steps%c.cfg.SnapshotEvery != 0 {
			if _, err := c.deps.Store.SaveSnapshot(sum.RunID, sum.Steps, c.table); err != nil {
				log.Printf("[CTRL] snapshot at end: %v", err)
			}
		}
		err := c.deps.Store.FinishRun(sum.RunID, runstore.RunResult{
			StepsDone:   sum.Steps,
			TotalReward: sum.TotalReward,
			FinalMode:   string(sum.Mode),
			Interrupted: sum.Interrupted,
			Persisted:   sum.Persisted,
			FinishedAt:  time.Now().UTC(),
		})
		if err != nil {
			log.Printf("[CTRL] finish run: %v", err)
		}
	}

	log.Printf("[CTRL] run %s done: steps=%d updates=%d reward=%.2f mode=%s interrupted=%v persisted=%v optimal=%v",
		sum.RunID, sum.Steps, sum.Updates, sum.TotalReward, sum.Mode, sum.Interrupted, sum.Persisted, sum.Optimal)
	c.play(sound.EventEnd)
	return writeErr
}

func (c *Controller) record(steps int, reward float64) tablelog.Record {
	return tablelog.Record{
		Name:          c.cfg.Name,
		Environment:   c.cfg.Environment,
		Steps:         steps,
		States:        c.cfg.NStates,
		Actions:       c.cfg.NActions,
		Rule:          string(c.cfg.Update.Rule),
		Gamma:         c.cfg.Update.Gamma,
		Alpha:         c.cfg.Update.InitialAlpha,
		Schedule:      string(c.cfg.Update.Schedule),
		Decay:         c.cfg.Update.Decay,
		MinAlpha:      c.cfg.Update.MinAlpha,
		InitialPolicy: c.cfg.Init.InitialPolicy,
		InitialBias:   c.cfg.Init.InitialBias,
		TotalReward:   reward,
		Entries:       c.table.Entries(),
	}
}

// #endregion

// #region progress

// report publishes one finished step to the display, speaker, log and run
// store. Run store failures are logged and never stop the run.
func (c *Controller) report(step int, choice policy.Choice, sp table.State, r, total float64, entry logging.TransitionEntry) {
	c.showRow(fmt.Sprintf("Step %d/%d", step, c.cfg.NSteps), 0)
	c.showRow(fmt.Sprintf("s=%d a=%d %s", entry.State, choice.Action, strategyTag(choice.Strategy)), 2)
	c.showRow(fmt.Sprintf("r=%.1f s'=%d", r, sp), 3)
	c.showRow(fmt.Sprintf("R=%.1f", total), 4)

	switch {
	case c.mode == ModeExploit:
		c.play(sound.EventExploitation)
	case c.known != nil && eval.IsOptimal(c.table, c.known):
		c.play(sound.EventOptimalStep)
	default:
		c.play(sound.EventStep)
	}

	log.Printf("[CTRL] step %d: s=%d a=%d (%s) r=%.2f s'=%d mode=%s",
		step, entry.State, choice.Action, choice.Strategy, r, sp, c.mode)

	if c.deps.Store == nil {
		return
	}
	if err := logging.LogTransition(c.deps.Store.DB(), entry); err != nil {
		log.Printf("[CTRL] %v", err)
	}
	if c.cfg.SnapshotEvery > 0 && step%c.cfg.SnapshotEvery == 0 {
		if _, err := c.deps.Store.SaveSnapshot(entry.RunID, step, c.table); err != nil {
			log.Printf("[CTRL] snapshot at step %d: %v", step, err)
		}
	}
}

func (c *Controller) show(msg string) {
	if c.deps.Screen != nil {
		c.deps.Screen.Show(msg)
	}
}

func (c *Controller) showRow(msg string, row int) {
	if c.deps.Screen != nil {
		c.deps.Screen.ShowRow(msg, row)
	}
}

func (c *Controller) play(e sound.Event) {
	if c.deps.Player != nil {
		c.deps.Player.Play(e)
	}
}

func modeLabel(m Mode) string {
	switch m {
	case ModeDebugStep:
		return "Mode: debug"
	case ModeExploit:
		return "Mode: exploit"
	case ModeTerminating:
		return "Mode: saving"
	}
	return "Mode: learning"
}

func strategyTag(s policy.Strategy) string {
	switch s {
	case policy.StrategyGreedy:
		return "(g)"
	case policy.StrategyRandom:
		return "(r)"
	case policy.StrategyLeastExplored:
		return "(x)"
	}
	return ""
}

// #endregion
