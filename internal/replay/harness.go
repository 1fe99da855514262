package replay

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/update"
)

// #region types
// Step is a single recorded control step for replay.
type Step struct {
	Step    int
	S       table.State
	A       table.Action
	Reward  float64
	SP      table.State
	AP      table.Action // next action, SARSA only
	Updated bool         // false for exploit steps, which never touch the table
}

// ReplayConfig holds the table shape and the update parameters to replay with.
type ReplayConfig struct {
	States  int
	Actions int
	Init    table.InitConfig
	Update  update.Config
}

// DefaultReplayConfig returns the Simple_1 shape with the default update rule.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		States:  4,
		Actions: 4,
		Init:    table.DefaultInitConfig(),
		Update:  update.DefaultConfig(),
	}
}

// ReplayResult captures the outcome of replaying one step.
type ReplayResult struct {
	Step   int
	Action string // "commit" | "skip"
	Reason string
	Update update.Result // zero for skipped steps
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps  int
	Commits     int
	Skips       int
	TotalReward float64
	FinalTable  *table.Table
}

// Diff is one table cell that differs between two tables.
type Diff struct {
	S     table.State
	A     table.Action
	Want  float64
	Got   float64
	WantN uint32
	GotN  uint32
}

// #endregion types

// #region replay
// Replay feeds recorded steps through a fresh update engine. When start is
// nil the table begins from cfg.Init; otherwise a clone of start is used.
// Steps naming a state or action outside the table are an error, not a panic.
func Replay(start *table.Table, steps []Step, cfg ReplayConfig) ([]ReplayResult, *table.Table, error) {
	engine, err := update.NewEngine(cfg.Update)
	if err != nil {
		return nil, nil, err
	}

	var current *table.Table
	if start != nil {
		current = start.Clone()
	} else {
		current, err = table.New(cfg.States, cfg.Actions, cfg.Init)
		if err != nil {
			return nil, nil, err
		}
	}

	results := make([]ReplayResult, 0, len(steps))
	for _, st := range steps {
		if !st.Updated {
			results = append(results, ReplayResult{
				Step:   st.Step,
				Action: "skip",
				Reason: "exploit step",
			})
			continue
		}
		if err := checkStep(current, st, engine.NeedsNextAction()); err != nil {
			return results, current, err
		}

		res := engine.Apply(current, update.Transition{S: st.S, A: st.A, Reward: st.Reward, SP: st.SP, AP: st.AP})
		results = append(results, ReplayResult{
			Step:   st.Step,
			Action: res.Decision.Action,
			Reason: res.Decision.Reason,
			Update: res,
		})
	}
	return results, current, nil
}

func checkStep(t *table.Table, st Step, needNext bool) error {
	in := func(v, n int) bool { return v >= 1 && v <= n }
	ok := in(int(st.S), t.NumStates()) && in(int(st.SP), t.NumStates()) && in(int(st.A), t.NumActions())
	if needNext {
		ok = ok && in(int(st.AP), t.NumActions())
	}
	if !ok {
		return fmt.Errorf("step %d: (s=%d a=%d s'=%d a''=%d) outside %dx%d table",
			st.Step, st.S, st.A, st.SP, st.AP, t.NumStates(), t.NumActions())
	}
	return nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(steps []Step, results []ReplayResult, final *table.Table) ReplaySummary {
	s := ReplaySummary{
		TotalSteps: len(results),
		FinalTable: final,
	}
	for _, r := range results {
		switch r.Action {
		case "commit":
			s.Commits++
		case "skip":
			s.Skips++
		}
	}
	for _, st := range steps {
		s.TotalReward += st.Reward
	}
	return s
}

// Compare lists every cell whose estimate differs by more than tol or whose
// visit count differs. Tables of different shape are an error.
func Compare(want, got *table.Table, tol float64) ([]Diff, error) {
	if want.NumStates() != got.NumStates() || want.NumActions() != got.NumActions() {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", table.ErrMismatch,
			want.NumStates(), want.NumActions(), got.NumStates(), got.NumActions())
	}
	var diffs []Diff
	for s := 1; s <= want.NumStates(); s++ {
		for a := 1; a <= want.NumActions(); a++ {
			st, ac := table.State(s), table.Action(a)
			w, g := want.Get(st, ac), got.Get(st, ac)
			wn, gn := want.Visits(st, ac), got.Visits(st, ac)
			if math.Abs(w-g) > tol || wn != gn {
				diffs = append(diffs, Diff{S: st, A: ac, Want: w, Got: g, WantN: wn, GotN: gn})
			}
		}
	}
	return diffs, nil
}

// #endregion replay

// #region run-store
// FromRows converts logged transitions into replay steps.
func FromRows(rows []runstore.TransitionRow) []Step {
	steps := make([]Step, len(rows))
	for i, r := range rows {
		steps[i] = Step{
			Step:    r.Step,
			S:       r.State,
			A:       r.Action,
			Reward:  r.Reward,
			SP:      r.NextState,
			AP:      r.NextAction,
			Updated: r.Updated,
		}
	}
	return steps
}

// Verification is the result of replaying a stored run against its last
// snapshot.
type Verification struct {
	Run      runstore.RunRecord
	Summary  ReplaySummary
	Snapshot runstore.Snapshot
	Diffs    []Diff
}

// Matches reports whether the replayed table equals the snapshot.
func (v Verification) Matches() bool { return len(v.Diffs) == 0 }

// RunConfig returns the replay configuration a stored run was learned with.
// Fields the run row leaves empty keep their value from base.
func RunConfig(run runstore.RunRecord, base ReplayConfig) ReplayConfig {
	cfg := base
	cfg.States, cfg.Actions = run.NStates, run.NActions
	cfg.Update.Rule = update.Rule(run.Rule)
	cfg.Update.Gamma = run.Gamma
	cfg.Update.InitialAlpha = run.Alpha
	if run.Schedule != "" {
		cfg.Update.Schedule = update.Schedule(run.Schedule)
		cfg.Update.Decay = run.Decay
		cfg.Update.MinAlpha = run.MinAlpha
	}
	if run.InitialPolicy > 0 {
		cfg.Init.InitialPolicy = table.Action(run.InitialPolicy)
		cfg.Init.InitialBias = run.InitialBias
	}
	return cfg
}

// VerifyRun rebuilds a stored run's table from its transitions and compares
// it with the latest snapshot, using the update parameters stored with the
// run (see RunConfig).
func VerifyRun(store *runstore.Store, runID string, base ReplayConfig) (Verification, error) {
	run, err := store.GetRun(runID)
	if err != nil {
		return Verification{}, err
	}
	cfg := RunConfig(run, base)

	rows, err := store.Transitions(runID)
	if err != nil {
		return Verification{}, err
	}
	snap, err := store.LatestSnapshot(runID)
	if err != nil {
		return Verification{}, err
	}

	// only replay up to the snapshot
	steps := FromRows(rows)
	n := 0
	for n < len(steps) && steps[n].Step <= snap.Step {
		n++
	}
	steps = steps[:n]

	results, final, err := Replay(nil, steps, cfg)
	if err != nil {
		return Verification{}, fmt.Errorf("replay run %s: %w", runID, err)
	}

	want, err := table.New(snap.NStates, snap.NActions, cfg.Init)
	if err != nil {
		return Verification{}, err
	}
	if err := want.Restore(snap.Entries); err != nil {
		return Verification{}, fmt.Errorf("restore snapshot %s: %w", snap.SnapshotID, err)
	}
	diffs, err := Compare(want, final, 1e-12)
	if err != nil {
		return Verification{}, err
	}

	return Verification{
		Run:      run,
		Summary:  Summarize(steps, results, final),
		Snapshot: snap,
		Diffs:    diffs,
	}, nil
}

// #endregion run-store
