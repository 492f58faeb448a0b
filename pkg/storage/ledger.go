package storage

import (
	"context"
	"fmt"
)

// IsProcessed reports whether the key has already been transformed. Absence
// means eligible.
func (d *DB) IsProcessed(ctx context.Context, key LedgerKey) (bool, error) {
	var n int
	err := d.sql.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM ledger WHERE day = ? AND user_id = ? AND task_id = ?",
		key.Day.String(), key.UserID, key.TaskID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records the key in the ledger. The insert is atomic per key
// and ignores duplicates, so concurrent runs over the same user cannot lose
// or double an entry. The ledger is additive-only; nothing ever deletes from
// it.
func (d *DB) MarkProcessed(ctx context.Context, key LedgerKey) error {
	if !key.Valid() {
		return fmt.Errorf("incomplete ledger key %s", key)
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT OR IGNORE INTO ledger(day, user_id, task_id) VALUES(?,?,?)",
		key.Day.String(), key.UserID, key.TaskID)
	return err
}

// LedgerStats is the per-user ledger aggregate shown by `evermult db stats`.
type LedgerStats struct {
	UserID   string
	Entries  int
	FirstDay string
	LastDay  string
}

func (d *DB) GetLedgerStats(ctx context.Context) ([]LedgerStats, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT user_id, COUNT(1), MIN(day), MAX(day)
		FROM ledger
		GROUP BY user_id
		ORDER BY user_id;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []LedgerStats
	for rows.Next() {
		var s LedgerStats
		if err := rows.Scan(&s.UserID, &s.Entries, &s.FirstDay, &s.LastDay); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
