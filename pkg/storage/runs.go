package storage

import (
	"context"
	"database/sql"
	"time"
)

// RunRow is one persisted per-user run summary. The engine itself treats
// summaries as ephemeral; persistence exists so the dashboard can show run
// history.
type RunRow struct {
	Day             string
	UserID          string
	DryRun          bool
	Found           int
	Transformed     int
	SkippedNoTask   int
	SkippedZero     int
	SkippedMarked   int
	SkippedLedger   int
	Failed          int
	DataLoss        int
	Anomalies       int
	OriginalSeconds int
	UpdatedSeconds  int
	Error           string
	FinishedAt      time.Time
}

func (d *DB) SaveRunRow(ctx context.Context, r RunRow) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO run_summaries(
			day, user_id, dry_run, found, transformed,
			skipped_no_task, skipped_zero, skipped_marked, skipped_ledger,
			failed, data_loss, anomalies, original_seconds, updated_seconds, error
		) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.Day, r.UserID, boolToInt(r.DryRun), r.Found, r.Transformed,
		r.SkippedNoTask, r.SkippedZero, r.SkippedMarked, r.SkippedLedger,
		r.Failed, r.DataLoss, r.Anomalies, r.OriginalSeconds, r.UpdatedSeconds,
		nullIfEmpty(r.Error))
	return err
}

// ListRunRows returns the most recent persisted summaries, newest first.
func (d *DB) ListRunRows(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT day, user_id, dry_run, found, transformed,
		       skipped_no_task, skipped_zero, skipped_marked, skipped_ledger,
		       failed, data_loss, anomalies, original_seconds, updated_seconds,
		       error, finished_at
		FROM run_summaries ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunRow{}
	for rows.Next() {
		var (
			r          RunRow
			dryRun     int
			errNS      sql.NullString
			finishedAt string
		)
		if err := rows.Scan(&r.Day, &r.UserID, &dryRun, &r.Found, &r.Transformed,
			&r.SkippedNoTask, &r.SkippedZero, &r.SkippedMarked, &r.SkippedLedger,
			&r.Failed, &r.DataLoss, &r.Anomalies, &r.OriginalSeconds, &r.UpdatedSeconds,
			&errNS, &finishedAt); err != nil {
			return nil, err
		}
		r.DryRun = dryRun == 1
		r.Error = errNS.String
		r.FinishedAt = parseSQLiteTime(finishedAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
