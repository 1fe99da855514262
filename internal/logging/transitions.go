package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-transition
// LogTransition writes one control step to the transitions table.
func LogTransition(db *sql.DB, entry TransitionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO transitions (run_id, step, state, action, reward, next_state, next_action, strategy, mode, updated, alpha, td_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Step,
		entry.State,
		entry.Action,
		entry.Reward,
		entry.NextState,
		entry.NextAction,
		entry.Strategy,
		entry.Mode,
		boolInt(entry.Updated),
		entry.Alpha,
		entry.TDError,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}
// #endregion log-transition

// #region helpers
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
// #endregion helpers
