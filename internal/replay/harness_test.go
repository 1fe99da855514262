package replay

import (
	"context"
	"io"
	"testing"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/controller"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/display"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/gate"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/robot"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/signals"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/task"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/update"
)

func smallConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	cfg.States, cfg.Actions = 2, 2
	cfg.Update.Gamma, cfg.Update.InitialAlpha = 0.5, 0.5
	return cfg
}

// 1. Learning steps commit, exploit steps are skipped and leave the table alone.
func TestReplay_CommitAndSkip(t *testing.T) {
	steps := []Step{
		{Step: 1, S: 1, A: 2, Reward: 4, SP: 1, Updated: true},
		{Step: 2, S: 1, A: 1, Reward: 9, SP: 2, Updated: false},
	}
	results, final, err := Replay(nil, steps, smallConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if results[0].Action != "commit" || results[1].Action != "skip" {
		t.Fatalf("unexpected actions %s/%s", results[0].Action, results[1].Action)
	}
	if final.Get(1, 2) != 2 || final.Get(1, 1) != 0 {
		t.Fatalf("unexpected table: Q(1,2)=%f Q(1,1)=%f", final.Get(1, 2), final.Get(1, 1))
	}

	sum := Summarize(steps, results, final)
	if sum.Commits != 1 || sum.Skips != 1 || sum.TotalReward != 13 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

// 2. A start table is cloned, never written.
func TestReplay_StartTableUntouched(t *testing.T) {
	start, _ := table.New(2, 2, table.DefaultInitConfig())
	start.Update(2, 2, 1)
	before := start.Clone()

	_, final, err := Replay(start, []Step{{Step: 1, S: 2, A: 2, Reward: 1, SP: 2, Updated: true}}, smallConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !start.Equal(before) {
		t.Fatal("replay wrote to the start table")
	}
	if final.Visits(2, 2) != 2 {
		t.Fatalf("expected visits to continue from the start table, got %d", final.Visits(2, 2))
	}
}

// 3. Out-of-range steps stop the replay with an error.
func TestReplay_OutOfRangeStep(t *testing.T) {
	_, _, err := Replay(nil, []Step{{Step: 7, S: 3, A: 1, SP: 1, Updated: true}}, smallConfig())
	if err == nil {
		t.Fatal("expected error for state 3 in a 2-state table")
	}

	cfg := smallConfig()
	cfg.Update.Rule = update.RuleSARSA
	_, _, err = Replay(nil, []Step{{Step: 1, S: 1, A: 1, SP: 1, Updated: true}}, cfg)
	if err == nil {
		t.Fatal("expected error for SARSA step without a next action")
	}
}

// 4. Bad update parameters are rejected before any step.
func TestReplay_InvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Update.InitialAlpha = 0
	if _, _, err := Replay(nil, nil, cfg); err == nil {
		t.Fatal("expected config error")
	}
}

func TestCompare(t *testing.T) {
	a, _ := table.New(2, 2, table.DefaultInitConfig())
	b := a.Clone()
	if diffs, _ := Compare(a, b, 0); len(diffs) != 0 {
		t.Fatalf("identical tables differ: %+v", diffs)
	}
	b.Update(2, 1, 0)
	diffs, _ := Compare(a, b, 0)
	if len(diffs) != 1 || diffs[0].S != 2 || diffs[0].A != 1 || diffs[0].GotN != 1 {
		t.Fatalf("expected a visit diff at (2,1), got %+v", diffs)
	}

	c, _ := table.New(3, 2, table.DefaultInitConfig())
	if _, err := Compare(a, c, 0); err == nil {
		t.Fatal("expected shape error")
	}
}

// 5. A simulated run logged to the store replays to its final snapshot.
func TestVerifyRun_SimulatedRun(t *testing.T) {
	for _, rule := range []update.Rule{update.RuleQLearning, update.RuleSARSA} {
		t.Run(string(rule), func(t *testing.T) {
			store, err := runstore.NewStore(":memory:")
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			defer store.Close()

			sim, err := robot.NewSim(robot.DefaultSimConfig())
			if err != nil {
				t.Fatalf("NewSim: %v", err)
			}
			cfg := controller.DefaultConfig()
			cfg.NSteps = 200
			cfg.Update.Rule = rule
			c, err := controller.New(cfg, controller.Deps{
				Task:     task.NewWander(task.DefaultWanderConfig(), sim),
				Operator: signals.NewScriptedOperator(map[int]signals.Signal{150: signals.SignalExploit}),
				Gate:     gate.NewGate(gate.FixedVolume(1 << 20)),
				LogDir:   t.TempDir(),
				Screen:   display.NewScreen(io.Discard),
				Clock:    sim,
				Store:    store,
			})
			if err != nil {
				t.Fatalf("controller.New: %v", err)
			}
			sum, err := c.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			v, err := VerifyRun(store, sum.RunID, DefaultReplayConfig())
			if err != nil {
				t.Fatalf("VerifyRun: %v", err)
			}
			if !v.Matches() {
				t.Fatalf("replay diverged from snapshot: %+v", v.Diffs)
			}
			if v.Summary.Commits != 150 || v.Summary.Skips != 50 {
				t.Fatalf("expected 150 commits and 50 skips, got %+v", v.Summary)
			}
			if v.Snapshot.Step != 200 {
				t.Fatalf("expected final snapshot, got step %d", v.Snapshot.Step)
			}
		})
	}
}

// 6. A harmonic run with a non-default initial table verifies against the
// default base, since the run row carries its own update parameters.
func TestVerifyRun_HarmonicRunUsesStoredParameters(t *testing.T) {
	store, err := runstore.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	sim, err := robot.NewSim(robot.DefaultSimConfig())
	if err != nil {
		t.Fatalf("NewSim: %v", err)
	}
	cfg := controller.DefaultConfig()
	cfg.NSteps = 120
	cfg.Update.Schedule = update.ScheduleHarmonic
	cfg.Update.Decay = 0.3
	cfg.Update.MinAlpha = 0.02
	cfg.Init.InitialPolicy = 2
	cfg.Init.InitialBias = 0.5
	c, err := controller.New(cfg, controller.Deps{
		Task:     task.NewWander(task.DefaultWanderConfig(), sim),
		Operator: signals.NewScriptedOperator(nil),
		Gate:     gate.NewGate(gate.FixedVolume(1 << 20)),
		LogDir:   t.TempDir(),
		Screen:   display.NewScreen(io.Discard),
		Clock:    sim,
		Store:    store,
	})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	sum, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	v, err := VerifyRun(store, sum.RunID, DefaultReplayConfig())
	if err != nil {
		t.Fatalf("VerifyRun: %v", err)
	}
	if !v.Matches() {
		t.Fatalf("harmonic replay diverged from snapshot: %+v", v.Diffs)
	}

	got := RunConfig(v.Run, DefaultReplayConfig())
	if got.Update.Schedule != update.ScheduleHarmonic || got.Update.Decay != 0.3 || got.Update.MinAlpha != 0.02 {
		t.Fatalf("schedule not taken from the run: %+v", got.Update)
	}
	if got.Init.InitialPolicy != 2 || got.Init.InitialBias != 0.5 {
		t.Fatalf("initial table not taken from the run: %+v", got.Init)
	}
}

func TestRunConfig_EmptyRowKeepsBase(t *testing.T) {
	base := DefaultReplayConfig()
	base.Update.Schedule = update.ScheduleHarmonic
	got := RunConfig(runstore.RunRecord{NStates: 3, NActions: 2, Rule: "sarsa", Gamma: 0.9, Alpha: 0.4}, base)
	if got.Update.Schedule != update.ScheduleHarmonic || got.Init != base.Init {
		t.Fatalf("empty fields must fall back to base, got %+v", got)
	}
	if got.States != 3 || got.Actions != 2 || got.Update.Rule != update.RuleSARSA || got.Update.InitialAlpha != 0.4 {
		t.Fatalf("row fields not applied: %+v", got)
	}
}

func TestVerifyRun_UnknownRun(t *testing.T) {
	store, err := runstore.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	if _, err := VerifyRun(store, "missing", DefaultReplayConfig()); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
