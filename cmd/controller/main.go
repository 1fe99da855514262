package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/controller"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/display"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/eval"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/gate"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/robot"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/runstore"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/signals"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/sound"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/tablelog"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/task"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/update"
)

// #region main
func main() {
	dbPath := envOr("BUMPLEARN_DB", "bumplearn.db")
	logDir := envOr("BUMPLEARN_LOG_DIR", "logs")
	budget := envOr("BUMPLEARN_BUDGET", "64KB")

	steps := flag.Int("steps", envInt("BUMPLEARN_STEPS", 1000), "number of learning steps")
	rule := flag.String("rule", string(update.RuleQLearning), "update rule: qlearning | sarsa")
	schedule := flag.String("schedule", string(update.ScheduleConstant), "alpha schedule: constant | harmonic")
	gamma := flag.Float64("gamma", 0.9, "discount factor")
	alpha := flag.Float64("alpha", 0.02, "learning rate")
	power := flag.Int("power", 50, "motor power [0, 100]")
	deploy := flag.Bool("deploy", false, "start in exploit mode and never update the table")
	resume := flag.String("resume", "", "continue from the last table in a .log file")
	seed := flag.Int64("seed", time.Now().UnixNano(), "action selection seed")
	realtime := flag.Bool("realtime", false, "pace the simulator in wall-clock time")
	disk := flag.Bool("disk", false, "guard against real free disk space instead of the byte budget")
	verbose := flag.Bool("v", false, "log every step tone")
	flag.Parse()

	// the budget covers only the table logs, so they get their own directory
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Fatalf("failed to create log dir: %v", err)
	}

	sim, err := robot.NewSim(robot.DefaultSimConfig())
	if err != nil {
		log.Fatalf("failed to start simulator: %v", err)
	}
	wcfg := task.DefaultWanderConfig()
	wcfg.MotorPower = *power
	wander := task.NewWander(wcfg, sim)

	cfg := controller.DefaultConfig()
	cfg.NSteps = *steps
	cfg.Update.Rule = update.Rule(*rule)
	cfg.Update.Schedule = update.Schedule(*schedule)
	cfg.Update.Gamma = *gamma
	cfg.Update.InitialAlpha = *alpha
	cfg.Deploy = *deploy
	cfg.Seed = *seed

	var volume gate.Volume
	if *disk {
		volume = gate.DiskVolume{Dir: logDir}
	} else {
		volume, err = gate.NewBudgetVolume(logDir, budget)
		if err != nil {
			log.Fatalf("invalid BUMPLEARN_BUDGET: %v", err)
		}
	}

	store, err := runstore.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	deps := controller.Deps{
		Task:     wander,
		Operator: signals.NewLineOperator(os.Stdin),
		Gate:     gate.NewGate(volume),
		LogDir:   logDir,
		Screen:   display.NewScreen(os.Stdout),
		Player:   sound.LogPlayer{Verbose: *verbose},
		Clock:    sim,
		Store:    store,
	}
	if *realtime {
		deps.Clock = pacedSim{sim}
	}
	if *resume != "" {
		rec, err := tablelog.LoadLatest(*resume)
		if err != nil {
			log.Fatalf("failed to resume: %v", err)
		}
		deps.Resume = &rec
	}

	ctl, err := controller.New(cfg, deps)
	if err != nil {
		log.Fatalf("invalid experiment: %v", err)
	}

	fmt.Println("bumplearn controller ready.")
	fmt.Printf("  DB: %s | Logs: %s | Task: %s (%s)\n", dbPath, logDir, wander.Name(), wander.Environment())
	fmt.Println("Keys: d+Enter debug, e+Enter exploit, q+Enter save and exit, Enter steps while debugging.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := ctl.Run(ctx)
	if err != nil {
		log.Printf("persist error: %v", err)
	}

	res := eval.NewEvalHarness(eval.DefaultEvalConfig()).Run(ctl.Table(), wander, runRewards(store, sum.RunID))

	fmt.Printf("\nrun %s: %d steps, reward %.1f, mode %s\n", sum.RunID, sum.Steps, sum.TotalReward, sum.Mode)
	for _, m := range res.Metrics {
		fmt.Printf("  %-20s %10.3f\n", m.Name, m.Value)
	}
	fmt.Printf("  policy %v (%s)\n", ctl.Table().Policy(), res.Reason)
	if sum.Persisted {
		fmt.Printf("  saved to %s\n", sum.Path)
	} else {
		fmt.Printf("  not saved: %s\n", sum.Guard.Reason)
	}

	if err != nil || !sum.Persisted {
		stop()
		store.Close()
		os.Exit(1)
	}
}
// #endregion main

// #region clock
// pacedSim waits in wall-clock time, then advances the simulator by the
// same amount.
type pacedSim struct {
	sim *robot.Sim
}

func (p pacedSim) Now() time.Time { return p.sim.Now() }

func (p pacedSim) Sleep(ctx context.Context, d time.Duration) error {
	if err := (controller.SystemClock{}).Sleep(ctx, d); err != nil {
		return err
	}
	return p.sim.Sleep(ctx, d)
}
// #endregion clock

// #region rewards
// runRewards loads the reward series for the evaluation. A failed lookup is
// logged and evaluates with no series.
func runRewards(store *runstore.Store, runID string) []float64 {
	rewards, err := store.RewardSeries(runID)
	if err != nil {
		log.Printf("reward series for run %s: %v", runID, err)
		return nil
	}
	return rewards
}
// #endregion rewards

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
// #endregion helpers
