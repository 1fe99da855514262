package policy

import (
	"math/rand"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region selector

// Selector picks an action for the current state. It only reads the table.
type Selector struct {
	config Config
	rng    *rand.Rand
}

// NewSelector creates a selector drawing from rng.
func NewSelector(config Config, rng *rand.Rand) *Selector {
	return &Selector{config: config, rng: rng}
}

// #endregion

// #region select-strategy

// SelectStrategy runs the two sequential draws. The second draw only happens
// when the first one does not exploit, so the split is 70 / 30*30 / 30*70.
// exploitOnly skips both draws.
func (s *Selector) SelectStrategy(exploitOnly bool) Strategy {
	if exploitOnly {
		return StrategyGreedy
	}
	if s.rng.Intn(100) < s.config.ExploitPercent {
		return StrategyGreedy
	}
	if s.rng.Intn(100) < s.config.LeastExploredPercent {
		return StrategyLeastExplored
	}
	return StrategyRandom
}

// #endregion

// #region select

// Select returns the action for state st.
func (s *Selector) Select(t table.Reader, st table.State, exploitOnly bool) Choice {
	strategy := s.SelectStrategy(exploitOnly)

	var a table.Action
	switch strategy {
	case StrategyLeastExplored:
		a = t.LeastExplored(st)
	case StrategyRandom:
		a = table.Action(1 + s.rng.Intn(t.NumActions()))
	default:
		a = t.Greedy(st)
	}
	return Choice{Action: a, Strategy: strategy}
}

// #endregion
