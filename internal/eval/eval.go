package eval

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/task"
)

// #region eval-harness
// EvalHarness scores a learned table against a task's known optimum and
// the rewards collected while learning it.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run evaluates t. known may be nil when the task has no reference policy,
// in which case only the reward metrics are reported and the run passes.
func (h *EvalHarness) Run(t table.Reader, known task.OptimalKnower, rewards []float64) EvalResult {
	var metrics []EvalMetric
	passed := true
	reason := "all checks passed"

	if known != nil {
		frac := OptimalFraction(t, known)
		ok := frac >= h.config.MinOptimalFraction
		metrics = append(metrics, EvalMetric{Name: "optimal_fraction", Value: frac, Pass: ok})
		if !ok {
			passed = false
			reason = fmt.Sprintf("eval failed: optimal fraction %.2f below %.2f", frac, h.config.MinOptimalFraction)
		}
	}

	// reward metrics are informational
	rs := Rewards(rewards, h.config.RewardWindow)
	metrics = append(metrics,
		EvalMetric{Name: "reward_total", Value: rs.Total, Pass: true},
		EvalMetric{Name: "reward_mean", Value: rs.Mean, Pass: true},
		EvalMetric{Name: "reward_stddev", Value: rs.StdDev, Pass: true},
		EvalMetric{Name: "reward_window_mean", Value: rs.WindowMean, Pass: true},
	)

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region optimal
// IsOptimal reports whether the greedy action of every state is one of the
// task's optimal actions.
func IsOptimal(t table.Reader, known task.OptimalKnower) bool {
	for s := 1; s <= t.NumStates(); s++ {
		if !slices.Contains(known.OptimalActions(table.State(s)), t.Greedy(table.State(s))) {
			return false
		}
	}
	return true
}

// OptimalFraction returns the share of states whose greedy action is optimal.
func OptimalFraction(t table.Reader, known task.OptimalKnower) float64 {
	n := t.NumStates()
	if n == 0 {
		return 0
	}
	hits := 0
	for s := 1; s <= n; s++ {
		if slices.Contains(known.OptimalActions(table.State(s)), t.Greedy(table.State(s))) {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

// #endregion optimal

// #region rewards
// Rewards computes summary statistics of a reward series. An empty series
// yields the zero value.
func Rewards(rewards []float64, window int) RewardStats {
	if len(rewards) == 0 {
		return RewardStats{}
	}
	rs := RewardStats{
		Steps: len(rewards),
		Total: floats.Sum(rewards),
		Mean:  stat.Mean(rewards, nil),
	}
	if len(rewards) > 1 {
		rs.StdDev = stat.StdDev(rewards, nil)
	}
	tail := rewards
	if window > 0 && window < len(rewards) {
		tail = rewards[len(rewards)-window:]
	}
	rs.WindowMean = stat.Mean(tail, nil)
	return rs
}

// Cumulative returns the running sum of rewards.
func Cumulative(rewards []float64) []float64 {
	out := make([]float64, len(rewards))
	floats.CumSum(out, rewards)
	return out
}

// Moving returns the trailing mean over at most window steps at each point.
func Moving(rewards []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(rewards))
	for i := range rewards {
		lo := max(0, i+1-window)
		out[i] = stat.Mean(rewards[lo:i+1], nil)
	}
	return out
}

// #endregion rewards
