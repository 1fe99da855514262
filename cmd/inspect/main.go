package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/eval"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/tablelog"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to bumplearn.db")
	logPath := flag.String("log", "", "path to a <task>.log file (file mode)")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show single run detail")
	all := flag.Bool("all", false, "file mode: show every record, not just the last")
	window := flag.Int("window", 50, "trailing steps for the windowed reward mean")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if (*dbPath == "") == (*logPath == "") {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/bumplearn.db [--last N] [--run id] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --log path/to/Simple_1.log [--all] [--json]")
		os.Exit(2)
	}

	var err error
	switch {
	case *logPath != "":
		err = runFileMode(*logPath, *all, *jsonOut)
	case *runID != "":
		err = withStore(*dbPath, func(s *runstore.Store) error {
			return runDetailMode(s, *runID, *window, *jsonOut)
		})
	default:
		err = withStore(*dbPath, func(s *runstore.Store) error {
			return runListMode(s, *last, *jsonOut)
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func withStore(path string, fn func(*runstore.Store) error) error {
	store, err := runstore.NewStore(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID       string  `json:"run_id"`
	Task        string  `json:"task"`
	Rule        string  `json:"rule"`
	Steps       int     `json:"steps"`
	NSteps      int     `json:"n_steps"`
	TotalReward float64 `json:"total_reward"`
	FinalMode   string  `json:"final_mode"`
	Interrupted bool    `json:"interrupted"`
	Persisted   bool    `json:"persisted"`
	StartedAt   string  `json:"started_at"`
	started     string
}

func runListMode(store *runstore.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	// store returns newest first, print chronologically
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[len(runs)-1-i] = listRow{
			RunID:       r.RunID,
			Task:        r.Task,
			Rule:        r.Rule,
			Steps:       r.StepsDone,
			NSteps:      r.NSteps,
			TotalReward: r.TotalReward,
			FinalMode:   r.FinalMode,
			Interrupted: r.Interrupted,
			Persisted:   r.Persisted,
			StartedAt:   r.StartedAt.Format("2006-01-02T15:04:05Z"),
			started:     humanize.Time(r.StartedAt),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-15s  %-9s  %11s  %10s  %-11s  %-5s  %s\n",
		"Run", "Task", "Rule", "Steps", "Reward", "Mode", "Saved", "Started")
	fmt.Printf("%-10s+-%-15s+-%-9s+-%11s+-%10s+-%-11s+-%-5s+-%s\n",
		"----------", "---------------", "---------", "-----------", "----------", "-----------", "-----", "--------------")
	for _, r := range rows {
		mode := r.FinalMode
		if r.Interrupted {
			mode += "*"
		}
		fmt.Printf("%-10s  %-15s  %-9s  %5d/%-5d  %10.1f  %-11s  %-5v  %s\n",
			shortID(r.RunID), r.Task, r.Rule, r.Steps, r.NSteps, r.TotalReward, mode, r.Persisted, r.started)
	}
	fmt.Println("\n* interrupted before the step limit")
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID     string           `json:"run_id"`
	Task      string           `json:"task"`
	Env       string           `json:"environment"`
	Rule      string           `json:"rule"`
	Gamma     float64          `json:"gamma"`
	Alpha     float64          `json:"alpha"`
	Steps     int              `json:"steps"`
	Mode      string           `json:"final_mode"`
	Snapshot  int              `json:"snapshot_step"`
	Estimates [][]float64      `json:"estimates"`
	Visits    [][]uint32       `json:"visits"`
	Policy    []table.Action   `json:"policy"`
	Rewards   eval.RewardStats `json:"rewards"`
	Strategy  map[string]int   `json:"strategies"`
}

func runDetailMode(store *runstore.Store, runID string, window int, jsonOut bool) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	snap, err := store.LatestSnapshot(runID)
	if err != nil {
		return err
	}
	t, err := table.New(snap.NStates, snap.NActions, table.DefaultInitConfig())
	if err != nil {
		return err
	}
	if err := t.Restore(snap.Entries); err != nil {
		return err
	}
	trs, err := store.Transitions(runID)
	if err != nil {
		return err
	}

	rewards := make([]float64, len(trs))
	strategies := map[string]int{}
	for i, tr := range trs {
		rewards[i] = tr.Reward
		strategies[tr.Strategy]++
	}

	est, vis := grid(t)
	out := detailOutput{
		RunID:     run.RunID,
		Task:      run.Task,
		Env:       run.Environment,
		Rule:      run.Rule,
		Gamma:     run.Gamma,
		Alpha:     run.Alpha,
		Steps:     run.StepsDone,
		Mode:      run.FinalMode,
		Snapshot:  snap.Step,
		Estimates: est,
		Visits:    vis,
		Policy:    t.Policy(),
		Rewards:   eval.Rewards(rewards, window),
		Strategy:  strategies,
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Run:         %s\n", out.RunID)
	fmt.Printf("Task:        %s (%s)\n", out.Task, out.Env)
	fmt.Printf("Rule:        %s gamma=%.2f alpha=%.3f\n", out.Rule, out.Gamma, out.Alpha)
	fmt.Printf("Steps:       %d (%s)\n", out.Steps, out.Mode)
	fmt.Printf("Snapshot:    step %d\n", out.Snapshot)
	fmt.Printf("Reward:      total %.1f, mean %.3f, sd %.3f, last %d mean %.3f\n",
		out.Rewards.Total, out.Rewards.Mean, out.Rewards.StdDev, window, out.Rewards.WindowMean)
	fmt.Printf("Strategies:  greedy %d, least explored %d, random %d\n",
		strategies["greedy"], strategies["least_explored"], strategies["random"])

	fmt.Printf("\nTable:\n")
	printTable(t)
	return nil
}

// #endregion detail-mode

// #region file-mode

func runFileMode(path string, all, jsonOut bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	recs, err := tablelog.DecodeAll(f)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("%s: %w", path, tablelog.ErrNoRecord)
	}
	if !all {
		recs = recs[len(recs)-1:]
	}

	if jsonOut {
		return printJSON(recs)
	}

	fmt.Printf("%s: %s, %d record(s) shown\n", path, humanize.Bytes(uint64(info.Size())), len(recs))
	for _, r := range recs {
		t, err := table.New(r.States, r.Actions, table.DefaultInitConfig())
		if err != nil {
			return err
		}
		if err := t.Restore(r.Entries); err != nil {
			return err
		}
		size, _ := tablelog.Size(r)
		fmt.Printf("\n%s (%s): %d steps, %s gamma=%.2f alpha=%.3f reward %.1f [%s]\n",
			r.Name, r.Environment, r.Steps, r.Rule, r.Gamma, r.Alpha, r.TotalReward, humanize.Bytes(uint64(size)))
		printTable(t)
	}
	return nil
}

// #endregion file-mode

// #region output

func grid(t *table.Table) ([][]float64, [][]uint32) {
	est := make([][]float64, t.NumStates())
	vis := make([][]uint32, t.NumStates())
	for s := range est {
		est[s] = make([]float64, t.NumActions())
		vis[s] = make([]uint32, t.NumActions())
		for a := range est[s] {
			est[s][a] = t.Get(table.State(s+1), table.Action(a+1))
			vis[s][a] = t.Visits(table.State(s+1), table.Action(a+1))
		}
	}
	return est, vis
}

func printTable(t *table.Table) {
	fmt.Printf("  %-5s", "s\\a")
	for a := 1; a <= t.NumActions(); a++ {
		fmt.Printf("  %16d", a)
	}
	fmt.Printf("  %s\n", "greedy")
	for s := 1; s <= t.NumStates(); s++ {
		st := table.State(s)
		fmt.Printf("  %-5d", s)
		for a := 1; a <= t.NumActions(); a++ {
			ac := table.Action(a)
			fmt.Printf("  %9.4f (%4s)", t.Get(st, ac), humanize.Comma(int64(t.Visits(st, ac))))
		}
		fmt.Printf("  %d\n", t.Greedy(st))
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
