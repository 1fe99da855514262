package table

import "fmt"

// #region table-struct
// Table holds action-value estimates and visit counters for a fixed
// N_STATES x N_ACTIONS grid. Both arenas are allocated once in New and
// never grow.
type Table struct {
	nStates  int
	nActions int
	init     InitConfig
	values   []float64
	visits   []uint32
}
// #endregion table-struct

// #region constructor
// New allocates a table and seeds it from cfg.
func New(nStates, nActions int, cfg InitConfig) (*Table, error) {
	if nStates < 1 || nActions < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrDimensions, nStates, nActions)
	}
	if cfg.InitialPolicy < 1 || int(cfg.InitialPolicy) > nActions {
		return nil, fmt.Errorf("initial policy %d outside [1, %d]", cfg.InitialPolicy, nActions)
	}
	t := &Table{
		nStates:  nStates,
		nActions: nActions,
		init:     cfg,
		values:   make([]float64, nStates*nActions),
		visits:   make([]uint32, nStates*nActions),
	}
	t.Reset()
	return t, nil
}

// Reset re-applies the initial bias and clears every visit counter.
func (t *Table) Reset() {
	for i := range t.values {
		t.values[i] = 0
		t.visits[i] = 0
	}
	for s := 1; s <= t.nStates; s++ {
		t.values[t.index(State(s), t.init.InitialPolicy)] = t.init.InitialBias
	}
}
// #endregion constructor

// #region accessors
func (t *Table) NumStates() int  { return t.nStates }
func (t *Table) NumActions() int { return t.nActions }

// Get returns the estimate for (s, a).
func (t *Table) Get(s State, a Action) float64 {
	return t.values[t.index(s, a)]
}

// Visits returns how many updates (s, a) has received.
func (t *Table) Visits(s State, a Action) uint32 {
	return t.visits[t.index(s, a)]
}

// Update writes a new estimate for (s, a) and counts the visit.
func (t *Table) Update(s State, a Action, estimate float64) {
	i := t.index(s, a)
	t.values[i] = estimate
	t.visits[i]++
}
// #endregion accessors

// #region scans
// Greedy returns the action with the highest estimate for s.
// Ties go to the lowest action index.
func (t *Table) Greedy(s State) Action {
	row := t.row(s)
	best := 0
	for a := 1; a < t.nActions; a++ {
		if t.values[row+a] > t.values[row+best] {
			best = a
		}
	}
	return Action(best + 1)
}

// Max returns the highest estimate for s.
func (t *Table) Max(s State) float64 {
	return t.Get(s, t.Greedy(s))
}

// LeastExplored returns the action with the fewest visits for s.
// Ties go to the lowest action index.
func (t *Table) LeastExplored(s State) Action {
	row := t.row(s)
	least := 0
	for a := 1; a < t.nActions; a++ {
		if t.visits[row+a] < t.visits[row+least] {
			least = a
		}
	}
	return Action(least + 1)
}

// Policy returns the greedy action of every state, indexed from state 1
// at position 0.
func (t *Table) Policy() []Action {
	out := make([]Action, t.nStates)
	for s := 1; s <= t.nStates; s++ {
		out[s-1] = t.Greedy(State(s))
	}
	return out
}
// #endregion scans

// #region snapshot
// Entries exports every cell in state-major, action-minor order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.values))
	for s := 1; s <= t.nStates; s++ {
		for a := 1; a <= t.nActions; a++ {
			i := t.index(State(s), Action(a))
			out = append(out, Entry{
				State:    State(s),
				Action:   Action(a),
				Estimate: t.values[i],
				Visits:   t.visits[i],
			})
		}
	}
	return out
}

// Restore overwrites the table from entries. Every (s, a) must be present
// exactly once and inside the table bounds; on error the table is unchanged.
func (t *Table) Restore(entries []Entry) error {
	if len(entries) != len(t.values) {
		return fmt.Errorf("%w: %d entries for %d cells", ErrMismatch, len(entries), len(t.values))
	}
	seen := make([]bool, len(t.values))
	for _, e := range entries {
		if !t.inBounds(e.State, e.Action) {
			return fmt.Errorf("%w: entry (%d,%d) outside %dx%d", ErrMismatch, e.State, e.Action, t.nStates, t.nActions)
		}
		i := t.index(e.State, e.Action)
		if seen[i] {
			return fmt.Errorf("duplicate entry (%d,%d)", e.State, e.Action)
		}
		seen[i] = true
	}
	for _, e := range entries {
		i := t.index(e.State, e.Action)
		t.values[i] = e.Estimate
		t.visits[i] = e.Visits
	}
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{
		nStates:  t.nStates,
		nActions: t.nActions,
		init:     t.init,
		values:   make([]float64, len(t.values)),
		visits:   make([]uint32, len(t.visits)),
	}
	copy(c.values, t.values)
	copy(c.visits, t.visits)
	return c
}

// Equal reports whether both tables hold the same estimates and visits.
func (t *Table) Equal(o *Table) bool {
	if t.nStates != o.nStates || t.nActions != o.nActions {
		return false
	}
	for i := range t.values {
		if t.values[i] != o.values[i] || t.visits[i] != o.visits[i] {
			return false
		}
	}
	return true
}
// #endregion snapshot

// #region indexing
func (t *Table) inBounds(s State, a Action) bool {
	return s >= 1 && int(s) <= t.nStates && a >= 1 && int(a) <= t.nActions
}

// index panics on out-of-range arguments: callers validate once at
// configuration time, so a bad index here is a programming error.
func (t *Table) index(s State, a Action) int {
	if !t.inBounds(s, a) {
		panic(fmt.Sprintf("table: index (%d,%d) outside %dx%d", s, a, t.nStates, t.nActions))
	}
	return (int(s)-1)*t.nActions + int(a) - 1
}

func (t *Table) row(s State) int {
	return t.index(s, 1)
}
// #endregion indexing
