package eval

// #region eval-config
// EvalConfig holds thresholds for judging a learned table.
type EvalConfig struct {
	MinOptimalFraction float64 // fail if fewer states than this pick an optimal action
	RewardWindow       int     // trailing steps used for the windowed reward mean
}

// DefaultEvalConfig requires the full optimal policy and averages the last
// 50 rewards.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinOptimalFraction: 1.0,
		RewardWindow:       50,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of a table evaluation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result

// #region reward-stats
// RewardStats summarizes a reward series.
type RewardStats struct {
	Steps      int
	Total      float64
	Mean       float64
	StdDev     float64
	WindowMean float64 // mean of the trailing window, or of all steps if shorter
}

// #endregion reward-stats
