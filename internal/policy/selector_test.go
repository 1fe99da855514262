package policy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region helpers

// fixedTable has greedy action 4 and least explored action 1 in state 2.
func fixedTable(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New(4, 4, table.DefaultInitConfig())
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	tb.Update(2, 2, -1)
	tb.Update(2, 3, -1)
	tb.Update(2, 4, 5)
	return tb
}

func within(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

// #endregion helpers

// #region strategy-tests

func TestStrategyFrequencies(t *testing.T) {
	sel := NewSelector(DefaultConfig(), rand.New(rand.NewSource(42)))
	const trials = 200000
	counts := map[Strategy]int{}
	for i := 0; i < trials; i++ {
		counts[sel.SelectStrategy(false)]++
	}

	want := map[Strategy]float64{
		StrategyGreedy:        0.70,
		StrategyRandom:        0.21,
		StrategyLeastExplored: 0.09,
	}
	for s, p := range want {
		got := float64(counts[s]) / trials
		if !within(got, p, 0.01) {
			t.Errorf("%s: expected ~%.2f, got %.4f", s, p, got)
		}
	}
}

func TestActionFrequencies(t *testing.T) {
	tb := fixedTable(t)
	sel := NewSelector(DefaultConfig(), rand.New(rand.NewSource(7)))
	const trials = 200000
	counts := make([]int, 5)
	for i := 0; i < trials; i++ {
		counts[sel.Select(tb, 2, false).Action]++
	}

	// random spreads 0.21 evenly over the four actions
	want := []float64{0, 0.09 + 0.0525, 0.0525, 0.0525, 0.70 + 0.0525}
	for a := 1; a <= 4; a++ {
		got := float64(counts[a]) / trials
		if !within(got, want[a], 0.01) {
			t.Errorf("action %d: expected ~%.4f, got %.4f", a, want[a], got)
		}
	}
}

// #endregion strategy-tests

// #region exploit-tests

func TestExploitIsDeterministic(t *testing.T) {
	tb := fixedTable(t)
	sel := NewSelector(DefaultConfig(), rand.New(rand.NewSource(1)))
	for i := 0; i < 1000; i++ {
		c := sel.Select(tb, 2, true)
		if c.Action != 4 || c.Strategy != StrategyGreedy {
			t.Fatalf("call %d: expected greedy action 4, got %d (%s)", i, c.Action, c.Strategy)
		}
	}
}

func TestExploitConsumesNoRandomness(t *testing.T) {
	a := rand.New(rand.NewSource(3))
	b := rand.New(rand.NewSource(3))
	sel := NewSelector(DefaultConfig(), a)
	tb := fixedTable(t)
	for i := 0; i < 10; i++ {
		sel.Select(tb, 1, true)
	}
	if a.Int63() != b.Int63() {
		t.Fatal("exploit-only selection advanced the random source")
	}
}

func TestRandomStaysInRange(t *testing.T) {
	tb := fixedTable(t)
	sel := NewSelector(Config{ExploitPercent: 0, LeastExploredPercent: 0}, rand.New(rand.NewSource(9)))
	for i := 0; i < 10000; i++ {
		c := sel.Select(tb, 3, false)
		if c.Strategy != StrategyRandom {
			t.Fatalf("expected random strategy, got %s", c.Strategy)
		}
		if c.Action < 1 || c.Action > 4 {
			t.Fatalf("action %d outside [1,4]", c.Action)
		}
	}
}

// #endregion exploit-tests
