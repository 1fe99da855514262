package table

import (
	"errors"
	"math/rand"
	"testing"
)

func newTable(t *testing.T, nS, nA int) *Table {
	t.Helper()
	tb, err := New(nS, nA, DefaultInitConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tb
}

func TestNewRejectsBadDimensions(t *testing.T) {
	if _, err := New(0, 4, DefaultInitConfig()); !errors.Is(err, ErrDimensions) {
		t.Fatalf("expected ErrDimensions, got %v", err)
	}
	if _, err := New(4, 0, DefaultInitConfig()); !errors.Is(err, ErrDimensions) {
		t.Fatalf("expected ErrDimensions, got %v", err)
	}
	if _, err := New(4, 4, InitConfig{InitialPolicy: 5}); err == nil {
		t.Fatal("expected error for initial policy outside action range")
	}
}

func TestInitialBias(t *testing.T) {
	tb, err := New(4, 4, InitConfig{InitialPolicy: 3, InitialBias: 0.5})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for s := State(1); s <= 4; s++ {
		if got := tb.Greedy(s); got != 3 {
			t.Fatalf("state %d: expected greedy 3, got %d", s, got)
		}
		for a := Action(1); a <= 4; a++ {
			if tb.Visits(s, a) != 0 {
				t.Fatalf("expected zero visits at (%d,%d)", s, a)
			}
		}
	}
}

func TestUpdateCountsVisits(t *testing.T) {
	tb := newTable(t, 4, 4)
	tb.Update(2, 3, 1.25)
	tb.Update(2, 3, 1.5)

	if got := tb.Get(2, 3); got != 1.5 {
		t.Fatalf("expected 1.5, got %f", got)
	}
	if got := tb.Visits(2, 3); got != 2 {
		t.Fatalf("expected 2 visits, got %d", got)
	}
	if got := tb.Visits(2, 2); got != 0 {
		t.Fatalf("neighbour visits changed: %d", got)
	}
}

func TestGreedyTieBreaksLowest(t *testing.T) {
	tb := newTable(t, 2, 4)
	if got := tb.Greedy(1); got != 1 {
		t.Fatalf("all-zero row: expected 1, got %d", got)
	}
	tb.Update(1, 2, 3)
	tb.Update(1, 4, 3)
	if got := tb.Greedy(1); got != 2 {
		t.Fatalf("expected lowest of tied maxima (2), got %d", got)
	}
	if got := tb.Max(1); got != 3 {
		t.Fatalf("expected max 3, got %f", got)
	}
}

func TestLeastExploredTieBreaksLowest(t *testing.T) {
	tb := newTable(t, 1, 4)
	if got := tb.LeastExplored(1); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	tb.Update(1, 1, 0)
	if got := tb.LeastExplored(1); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	tb.Update(1, 2, 0)
	tb.Update(1, 3, 0)
	if got := tb.LeastExplored(1); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

// LeastExplored must stay correct after arbitrary update sequences.
func TestLeastExploredProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tb := newTable(t, 4, 5)
	for i := 0; i < 5000; i++ {
		s := State(1 + rng.Intn(4))
		a := Action(1 + rng.Intn(5))
		tb.Update(s, a, rng.Float64())

		for st := State(1); st <= 4; st++ {
			got := tb.LeastExplored(st)
			min := tb.Visits(st, got)
			for ac := Action(1); ac <= 5; ac++ {
				v := tb.Visits(st, ac)
				if v < min {
					t.Fatalf("step %d state %d: action %d has %d visits < %d of %d", i, st, ac, v, min, got)
				}
				if v == min && ac < got {
					t.Fatalf("step %d state %d: tie not broken to lowest (%d vs %d)", i, st, ac, got)
				}
			}
		}
	}
}

func TestOutOfRangePanics(t *testing.T) {
	tb := newTable(t, 4, 4)
	cases := []struct {
		s State
		a Action
	}{{0, 1}, {5, 1}, {1, 0}, {1, 5}}
	for _, c := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for (%d,%d)", c.s, c.a)
				}
			}()
			tb.Get(c.s, c.a)
		}()
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	tb := newTable(t, 3, 2)
	tb.Update(1, 2, 4.5)
	tb.Update(3, 1, -2)

	other := newTable(t, 3, 2)
	if err := other.Restore(tb.Entries()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !other.Equal(tb) {
		t.Fatal("restored table differs")
	}
}

func TestRestoreRejectsMismatch(t *testing.T) {
	small := newTable(t, 2, 2)
	big := newTable(t, 3, 2)
	big.Update(1, 1, 9)

	if err := small.Restore(big.Entries()); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if small.Get(1, 1) != 0 {
		t.Fatal("failed restore mutated the table")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tb := newTable(t, 2, 2)
	c := tb.Clone()
	tb.Update(1, 1, 7)
	if c.Get(1, 1) != 0 || c.Visits(1, 1) != 0 {
		t.Fatal("clone shares storage with the original")
	}
}
