package policy

import "github.com/danielpatrickdp/bumplearn/go-controller/internal/table"

// #region strategy-id

// Strategy identifies which exploration branch produced an action.
type Strategy string

const (
	StrategyGreedy        Strategy = "greedy"
	StrategyRandom        Strategy = "random"
	StrategyLeastExplored Strategy = "least_explored"
)

// #endregion

// #region config

// Config holds the percent thresholds of the two sequential draws.
// Each draw is uniform over [0, 100).
type Config struct {
	ExploitPercent       int // first draw below this → greedy
	LeastExploredPercent int // second draw below this → least explored, else random
}

// DefaultConfig returns the 70/21/9 split used on the robot.
func DefaultConfig() Config {
	return Config{
		ExploitPercent:       70,
		LeastExploredPercent: 30,
	}
}

// #endregion

// #region choice

// Choice is the outcome of one selection.
type Choice struct {
	Action   table.Action
	Strategy Strategy
}

// #endregion
