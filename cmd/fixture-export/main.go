package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/replay"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to bumplearn.db")
	runID := flag.String("run", "", "run to export (default: most recent)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--run id]")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

// run exports every transition up to the run's latest snapshot, with the
// snapshot itself as the expected table.
func run(dbPath, runID, outPath string) error {
	store, err := runstore.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if runID == "" {
		runs, err := store.ListRuns(1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no runs in %s", dbPath)
		}
		runID = runs[0].RunID
	}

	rec, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	snap, err := store.LatestSnapshot(runID)
	if err != nil {
		return err
	}
	rows, err := store.Transitions(runID)
	if err != nil {
		return err
	}

	var kept []runstore.TransitionRow
	for _, r := range rows {
		if r.Step <= snap.Step {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("run %s has no transitions before its snapshot", runID)
	}

	fmt.Printf("Found %d transitions up to snapshot step %d\n", len(kept), snap.Step)

	fixture := buildFixture(rec, snap, kept)
	return writeFixture(fixture, outPath)
}

// #endregion extract

// #region output

func buildFixture(rec runstore.RunRecord, snap runstore.Snapshot, rows []runstore.TransitionRow) replay.Fixture {
	steps := make([]replay.FixtureStep, len(rows))
	for i, r := range rows {
		steps[i] = replay.FixtureStep{
			Step:    r.Step,
			S:       int(r.State),
			A:       int(r.Action),
			Reward:  r.Reward,
			SP:      int(r.NextState),
			AP:      int(r.NextAction),
			Updated: r.Updated,
		}
	}

	cfg := replay.RunConfig(rec, replay.DefaultReplayConfig())
	expected := replay.FixtureExpected{
		Estimates: make([][]float64, snap.NStates),
		Visits:    make([][]uint32, snap.NStates),
		Policy:    make([]int, snap.NStates),
	}
	t, err := table.New(snap.NStates, snap.NActions, cfg.Init)
	if err == nil && t.Restore(snap.Entries) == nil {
		for s := 0; s < snap.NStates; s++ {
			expected.Estimates[s] = make([]float64, snap.NActions)
			expected.Visits[s] = make([]uint32, snap.NActions)
			for a := 0; a < snap.NActions; a++ {
				expected.Estimates[s][a] = t.Get(table.State(s+1), table.Action(a+1))
				expected.Visits[s][a] = t.Visits(table.State(s+1), table.Action(a+1))
			}
			expected.Policy[s] = int(t.Greedy(table.State(s + 1)))
		}
	}

	return replay.Fixture{
		Description: fmt.Sprintf("Run export: %s %s, %d steps up to snapshot %d", rec.Task, rec.RunID, len(rows), snap.Step),
		Config: replay.FixtureConfig{
			States:        rec.NStates,
			Actions:       rec.NActions,
			InitialPolicy: int(cfg.Init.InitialPolicy),
			InitialBias:   cfg.Init.InitialBias,
			Rule:          string(cfg.Update.Rule),
			Gamma:         cfg.Update.Gamma,
			Alpha:         cfg.Update.InitialAlpha,
			Schedule:      string(cfg.Update.Schedule),
			Decay:         cfg.Update.Decay,
			MinAlpha:      cfg.Update.MinAlpha,
		},
		Steps:    steps,
		Expected: expected,
	}
}

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d steps)\n", outPath, len(data), len(fixture.Steps))
	return nil
}

// #endregion output
