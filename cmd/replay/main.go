package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/replay"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to bumplearn.db (DB mode)")
	runID := flag.String("run", "", "run to verify (DB mode, default: most recent)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/bumplearn.db [--run id]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *runID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

func runDBMode(dbPath, runID string) int {
	store, err := runstore.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	if runID == "" {
		runs, err := store.ListRuns(1)
		if err != nil || len(runs) == 0 {
			fmt.Fprintf(os.Stderr, "no runs found in %s\n", dbPath)
			return 2
		}
		runID = runs[0].RunID
	}

	v, err := replay.VerifyRun(store, runID, replay.DefaultReplayConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return 2
	}

	cfg := replay.RunConfig(v.Run, replay.DefaultReplayConfig())
	fmt.Printf("Run %s (%s, %s, %s alpha): %d steps replayed, %d commits, %d exploit skips\n",
		v.Run.RunID, v.Run.Task, v.Run.Rule, cfg.Update.Schedule, v.Summary.TotalSteps, v.Summary.Commits, v.Summary.Skips)
	fmt.Printf("Compared against snapshot at step %d\n\n", v.Snapshot.Step)

	want, err := table.New(v.Snapshot.NStates, v.Snapshot.NActions, cfg.Init)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot table: %v\n", err)
		return 2
	}
	if err := want.Restore(v.Snapshot.Entries); err != nil {
		fmt.Fprintf(os.Stderr, "snapshot table: %v\n", err)
		return 2
	}
	return printComparison(want, v.Summary.FinalTable)
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	cfg := f.Config.ToReplayConfig()
	_, final, err := replay.Replay(nil, f.ToSteps(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	want, err := f.ExpectedTable(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "expected table: %v\n", err)
		return 2
	}

	fmt.Printf("%s\n\n", f.Description)
	return printComparison(want, final)
}

// #endregion fixture-mode

// #region output

// printComparison outputs one row per cell and returns the exit code.
func printComparison(want, got *table.Table) int {
	fmt.Printf("%-8s| %-22s| %-22s| %s\n", "(s,a)", "Expected", "Replayed", "Match")
	fmt.Printf("%-8s+%-23s+%-23s+%s\n",
		"--------", "-----------------------", "-----------------------", "------")

	diffs, err := replay.Compare(want, got, 1e-12)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compare: %v\n", err)
		return 2
	}
	bad := make(map[[2]int]bool, len(diffs))
	for _, d := range diffs {
		bad[[2]int{int(d.S), int(d.A)}] = true
	}

	total := 0
	for s := 1; s <= want.NumStates(); s++ {
		for a := 1; a <= want.NumActions(); a++ {
			st, ac := table.State(s), table.Action(a)
			match := "OK"
			if bad[[2]int{s, a}] {
				match = "DIFF"
			}
			fmt.Printf("%-8s| %12.6f (%6d) | %12.6f (%6d) | %s\n",
				fmt.Sprintf("(%d,%d)", s, a), want.Get(st, ac), want.Visits(st, ac), got.Get(st, ac), got.Visits(st, ac), match)
			total++
		}
	}

	fmt.Printf("\nSummary: %d cells, %d match, %d diverge\n", total, total-len(diffs), len(diffs))
	if len(diffs) > 0 {
		return 1
	}
	return 0
}

// #endregion output
