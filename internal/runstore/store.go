package runstore

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/bumplearn/go-controller/internal/table"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	task          TEXT NOT NULL,
	environment   TEXT,
	rule          TEXT NOT NULL,
	gamma         REAL NOT NULL,
	alpha         REAL NOT NULL,
	schedule      TEXT NOT NULL DEFAULT 'constant',
	decay         REAL NOT NULL DEFAULT 0,
	min_alpha     REAL NOT NULL DEFAULT 0,
	initial_policy INTEGER NOT NULL DEFAULT 1,
	initial_bias  REAL NOT NULL DEFAULT 0,
	n_states      INTEGER NOT NULL,
	n_actions     INTEGER NOT NULL,
	n_steps       INTEGER NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT,
	steps_done    INTEGER NOT NULL DEFAULT 0,
	total_reward  REAL NOT NULL DEFAULT 0,
	final_mode    TEXT,
	interrupted   INTEGER NOT NULL DEFAULT 0,
	persisted     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS table_snapshots (
	snapshot_id   TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	step          INTEGER NOT NULL,
	n_states      INTEGER NOT NULL,
	n_actions     INTEGER NOT NULL,
	estimates     BLOB NOT NULL,
	visits        BLOB NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS transitions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	step          INTEGER NOT NULL,
	state         INTEGER NOT NULL,
	action        INTEGER NOT NULL,
	reward        REAL NOT NULL,
	next_state    INTEGER NOT NULL,
	next_action   INTEGER NOT NULL DEFAULT 0,
	strategy      TEXT NOT NULL,
	mode          TEXT NOT NULL,
	updated       INTEGER NOT NULL,
	alpha         REAL NOT NULL DEFAULT 0,
	td_error      REAL NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_transitions_run ON transitions(run_id, step);
`
// #endregion schema

// #region store-struct
// Store keeps runs, table snapshots and step transitions in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region runs
// CreateRun inserts a run row at start.
func (s *Store) CreateRun(rec RunRecord) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if rec.Schedule == "" {
		rec.Schedule = "constant"
	}
	if rec.InitialPolicy == 0 {
		rec.InitialPolicy = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, task, environment, rule, gamma, alpha, schedule, decay, min_alpha,
		 initial_policy, initial_bias, n_states, n_actions, n_steps, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Task, rec.Environment, rec.Rule, rec.Gamma, rec.Alpha,
		rec.Schedule, rec.Decay, rec.MinAlpha, rec.InitialPolicy, rec.InitialBias,
		rec.NStates, rec.NActions, rec.NSteps, rec.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the final counters of a run.
func (s *Store) FinishRun(runID string, res RunResult) error {
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now().UTC()
	}
	out, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, steps_done = ?, total_reward = ?, final_mode = ?,
		 interrupted = ?, persisted = ? WHERE run_id = ?`,
		res.FinishedAt.Format(time.RFC3339Nano), res.StepsDone, res.TotalReward, res.FinalMode,
		boolInt(res.Interrupted), boolInt(res.Persisted), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

const runColumns = `run_id, task, environment, rule, gamma, alpha, schedule, decay, min_alpha,
	initial_policy, initial_bias, n_states, n_actions, n_steps,
	started_at, finished_at, steps_done, total_reward, final_mode, interrupted, persisted`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var env, finished, mode sql.NullString
	var started string
	var interrupted, persisted int
	err := row.Scan(&rec.RunID, &rec.Task, &env, &rec.Rule, &rec.Gamma, &rec.Alpha,
		&rec.Schedule, &rec.Decay, &rec.MinAlpha, &rec.InitialPolicy, &rec.InitialBias,
		&rec.NStates, &rec.NActions, &rec.NSteps, &started, &finished,
		&rec.StepsDone, &rec.TotalReward, &mode, &interrupted, &persisted)
	if err != nil {
		return RunRecord{}, err
	}
	rec.Environment = env.String
	rec.FinalMode = mode.String
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	rec.Interrupted = interrupted != 0
	rec.Persisted = persisted != 0
	return rec, nil
}

// GetRun retrieves one run by ID.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	rec, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first. Runs with the same
// start time come back in reverse insertion order.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
// #endregion runs

// #region snapshots
// SaveSnapshot stores a copy of t taken after step.
func (s *Store) SaveSnapshot(runID string, step int, t *table.Table) (Snapshot, error) {
	snap := Snapshot{
		SnapshotID: uuid.New().String(),
		RunID:      runID,
		Step:       step,
		NStates:    t.NumStates(),
		NActions:   t.NumActions(),
		Entries:    t.Entries(),
		CreatedAt:  time.Now().UTC(),
	}
	est, vis := encodeEntries(snap.Entries)
	_, err := s.db.Exec(
		`INSERT INTO table_snapshots (snapshot_id, run_id, step, n_states, n_actions, estimates, visits, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.SnapshotID, runID, step, snap.NStates, snap.NActions, est, vis,
		snap.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

// LatestSnapshot returns the snapshot with the highest step for a run.
func (s *Store) LatestSnapshot(runID string) (Snapshot, error) {
	var snap Snapshot
	var est, vis []byte
	var created string
	err := s.db.QueryRow(
		`SELECT snapshot_id, run_id, step, n_states, n_actions, estimates, visits, created_at
		 FROM table_snapshots WHERE run_id = ? ORDER BY step DESC, created_at DESC LIMIT 1`, runID,
	).Scan(&snap.SnapshotID, &snap.RunID, &snap.Step, &snap.NStates, &snap.NActions, &est, &vis, &created)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot for %s: %w", runID, err)
	}
	snap.Entries, err = decodeEntries(snap.NStates, snap.NActions, est, vis)
	if err != nil {
		return Snapshot{}, err
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return snap, nil
}
// #endregion snapshots

// #region transitions
// Transitions returns every logged step of a run in step order.
func (s *Store) Transitions(runID string) ([]TransitionRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, step, state, action, reward, next_state, next_action, strategy, mode,
		 updated, alpha, td_error, created_at
		 FROM transitions WHERE run_id = ? ORDER BY step ASC, id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionRow
	for rows.Next() {
		var tr TransitionRow
		var updated int
		var created string
		if err := rows.Scan(&tr.RunID, &tr.Step, &tr.State, &tr.Action, &tr.Reward, &tr.NextState,
			&tr.NextAction, &tr.Strategy, &tr.Mode, &updated, &tr.Alpha, &tr.TDError, &created); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.Updated = updated != 0
		tr.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// RewardSeries returns the per-step rewards of a run in step order.
func (s *Store) RewardSeries(runID string) ([]float64, error) {
	trs, err := s.Transitions(runID)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(trs))
	for i, tr := range trs {
		out[i] = tr.Reward
	}
	return out, nil
}
// #endregion transitions

// #region entry-encoding
func encodeEntries(entries []table.Entry) (est, vis []byte) {
	est = make([]byte, len(entries)*8)
	vis = make([]byte, len(entries)*4)
	for i, e := range entries {
		binary.LittleEndian.PutUint64(est[i*8:], math.Float64bits(e.Estimate))
		binary.LittleEndian.PutUint32(vis[i*4:], e.Visits)
	}
	return est, vis
}

func decodeEntries(nStates, nActions int, est, vis []byte) ([]table.Entry, error) {
	n := nStates * nActions
	if len(est) != n*8 || len(vis) != n*4 {
		return nil, fmt.Errorf("snapshot blob sizes %d/%d do not fit %dx%d", len(est), len(vis), nStates, nActions)
	}
	out := make([]table.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, table.Entry{
			State:    table.State(i/nActions + 1),
			Action:   table.Action(i%nActions + 1),
			Estimate: math.Float64frombits(binary.LittleEndian.Uint64(est[i*8:])),
			Visits:   binary.LittleEndian.Uint32(vis[i*4:]),
		})
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
// #endregion entry-encoding
