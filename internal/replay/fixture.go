package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
	"github.com/danielpatrickdp/bumplearn/go-controller/internal/update"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string          `json:"description"`
	Config      FixtureConfig   `json:"config"`
	Steps       []FixtureStep   `json:"steps"`
	Expected    FixtureExpected `json:"expected"`
}

// FixtureConfig mirrors ReplayConfig with JSON tags.
type FixtureConfig struct {
	States        int     `json:"states"`
	Actions       int     `json:"actions"`
	InitialPolicy int     `json:"initial_policy"`
	InitialBias   float64 `json:"initial_bias"`
	Rule          string  `json:"rule"`
	Gamma         float64 `json:"gamma"`
	Alpha         float64 `json:"alpha"`
	Schedule      string  `json:"schedule"`
	Decay         float64 `json:"decay"`
	MinAlpha      float64 `json:"min_alpha"`
}

// FixtureStep mirrors Step with JSON tags.
type FixtureStep struct {
	Step    int     `json:"step"`
	S       int     `json:"s"`
	A       int     `json:"a"`
	Reward  float64 `json:"r"`
	SP      int     `json:"sp"`
	AP      int     `json:"ap,omitempty"`
	Updated bool    `json:"updated"`
}

// FixtureExpected is the table the steps must produce: estimates and visits
// are state-major rows, policy holds the greedy action per state.
type FixtureExpected struct {
	Estimates [][]float64 `json:"estimates"`
	Visits    [][]uint32  `json:"visits"`
	Policy    []int       `json:"policy"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToReplayConfig converts a FixtureConfig to a ReplayConfig. Empty fields
// fall back to the defaults.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.States > 0 {
		cfg.States = fc.States
	}
	if fc.Actions > 0 {
		cfg.Actions = fc.Actions
	}
	if fc.InitialPolicy > 0 {
		cfg.Init.InitialPolicy = table.Action(fc.InitialPolicy)
	}
	cfg.Init.InitialBias = fc.InitialBias
	if fc.Rule != "" {
		cfg.Update.Rule = update.Rule(fc.Rule)
	}
	if fc.Gamma > 0 {
		cfg.Update.Gamma = fc.Gamma
	}
	if fc.Alpha > 0 {
		cfg.Update.InitialAlpha = fc.Alpha
	}
	if fc.Schedule != "" {
		cfg.Update.Schedule = update.Schedule(fc.Schedule)
	}
	if fc.Decay > 0 {
		cfg.Update.Decay = fc.Decay
	}
	if fc.MinAlpha > 0 {
		cfg.Update.MinAlpha = fc.MinAlpha
	}
	return cfg
}

// ToSteps converts the fixture steps to replay steps.
func (f *Fixture) ToSteps() []Step {
	steps := make([]Step, len(f.Steps))
	for i, fs := range f.Steps {
		steps[i] = Step{
			Step:    fs.Step,
			S:       table.State(fs.S),
			A:       table.Action(fs.A),
			Reward:  fs.Reward,
			SP:      table.State(fs.SP),
			AP:      table.Action(fs.AP),
			Updated: fs.Updated,
		}
	}
	return steps
}

// ExpectedTable builds the expected table from the fixture. Shape errors are
// returned rather than panicking on a malformed file.
func (f *Fixture) ExpectedTable(cfg ReplayConfig) (*table.Table, error) {
	t, err := table.New(cfg.States, cfg.Actions, cfg.Init)
	if err != nil {
		return nil, err
	}
	exp := f.Expected
	if len(exp.Estimates) != cfg.States || len(exp.Visits) != cfg.States {
		return nil, fmt.Errorf("%w: expected %d rows", table.ErrMismatch, cfg.States)
	}
	entries := make([]table.Entry, 0, cfg.States*cfg.Actions)
	for s := 0; s < cfg.States; s++ {
		if len(exp.Estimates[s]) != cfg.Actions || len(exp.Visits[s]) != cfg.Actions {
			return nil, fmt.Errorf("%w: row %d needs %d actions", table.ErrMismatch, s+1, cfg.Actions)
		}
		for a := 0; a < cfg.Actions; a++ {
			entries = append(entries, table.Entry{
				State:    table.State(s + 1),
				Action:   table.Action(a + 1),
				Estimate: exp.Estimates[s][a],
				Visits:   exp.Visits[s][a],
			})
		}
	}
	if err := t.Restore(entries); err != nil {
		return nil, err
	}
	return t, nil
}

// #endregion fixture-loader
