package replay

import (
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
)

// #region fixture-tests

func runFixture(t *testing.T, name string) {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	cfg := f.Config.ToReplayConfig()

	results, final, err := Replay(nil, f.ToSteps(), cfg)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != len(f.Steps) {
		t.Fatalf("expected %d results, got %d", len(f.Steps), len(results))
	}

	want, err := f.ExpectedTable(cfg)
	if err != nil {
		t.Fatalf("ExpectedTable: %v", err)
	}
	diffs, err := Compare(want, final, 1e-12)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	for _, d := range diffs {
		t.Errorf("Q(%d,%d): expected %.6f (%d visits), got %.6f (%d visits)",
			d.S, d.A, d.Want, d.WantN, d.Got, d.GotN)
	}

	for i, a := range f.Expected.Policy {
		if got := final.Greedy(table.State(i + 1)); int(got) != a {
			t.Errorf("state %d: expected greedy %d, got %d", i+1, a, got)
		}
	}
}

// TestFixture_QLearningSession is the regression baseline for the max-target
// rule; a change to the update arithmetic shows up here first.
func TestFixture_QLearningSession(t *testing.T) {
	runFixture(t, "qlearning_session.json")
}

func TestFixture_SARSASession(t *testing.T) {
	runFixture(t, "sarsa_session.json")
}

func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture("testdata/nonexistent.json")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestExpectedTable_ShapeMismatch(t *testing.T) {
	f := &Fixture{Expected: FixtureExpected{Estimates: [][]float64{{0}}, Visits: [][]uint32{{0}}}}
	if _, err := f.ExpectedTable(DefaultReplayConfig()); err == nil {
		t.Fatal("expected shape error")
	}
}

func TestToReplayConfig_Defaults(t *testing.T) {
	var fc FixtureConfig
	cfg := fc.ToReplayConfig()
	def := DefaultReplayConfig()
	if cfg.States != def.States || cfg.Update != def.Update || cfg.Init != def.Init {
		t.Fatalf("empty fixture config should yield defaults, got %+v", cfg)
	}
}

// #endregion fixture-tests
