package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/eval"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to bumplearn.db")
	runID := flag.String("run", "", "run to plot (default: most recent)")
	window := flag.Int("window", 50, "steps in the moving reward average")
	outPath := flag.String("out", "charts/learning.html", "output HTML path")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: plot --db path/to/bumplearn.db [--run id] [--window N] [--out file.html]")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *window, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region render

func run(dbPath, runID string, window int, outPath string) error {
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
	rewards, err := store.RewardSeries(runID)
	if err != nil {
		return err
	}
	if len(rewards) == 0 {
		return fmt.Errorf("run %s has no logged steps", runID)
	}

	steps := make([]string, len(rewards))
	for i := range steps {
		steps[i] = strconv.Itoa(i + 1)
	}
	title := fmt.Sprintf("%s %s (%s)", rec.Task, rec.Rule, rec.RunID[:min(8, len(rec.RunID))])

	cumulative := lineChart(title, "cumulative reward", steps)
	cumulative.AddSeries("reward", lineData(eval.Cumulative(rewards)))

	moving := lineChart(title, fmt.Sprintf("reward, %d-step mean", window), steps)
	moving.AddSeries("mean", lineData(eval.Moving(rewards, window)))

	page := components.NewPage()
	page.AddCharts(cumulative, moving)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	stats := eval.Rewards(rewards, window)
	fmt.Printf("Wrote %s: %d steps, total %.1f, last %d mean %.3f\n",
		outPath, stats.Steps, stats.Total, window, stats.WindowMean)
	return nil
}

func lineChart(title, subtitle string, steps []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)
	line.SetXAxis(steps)
	return line
}

func lineData(values []float64) []opts.LineData {
	items := make([]opts.LineData, len(values))
	for i, v := range values {
		items[i] = opts.LineData{Value: v}
	}
	return items
}

// #endregion render
