package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/skalski/evermult/pkg/timerecord"
)

// BackupInfo describes one stored snapshot without its payload.
type BackupInfo struct {
	Handle  string
	UserID  string
	Day     string
	TakenAt time.Time
	Records int
}

// SaveBackup stores an immutable snapshot of a user's full record set for one
// day and returns its handle. Snapshots are never updated; repeated runs add
// new rows, each tagged with its creation timestamp.
func (d *DB) SaveBackup(ctx context.Context, userID string, day timerecord.Date, records []timerecord.TimeRecord) (string, error) {
	blob, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	handle := uuid.NewString()
	_, err = d.sql.ExecContext(ctx,
		"INSERT INTO backups(handle, user_id, day, records) VALUES(?,?,?,?)",
		handle, userID, day.String(), blob)
	if err != nil {
		return "", err
	}
	return handle, nil
}

// GetBackup returns the snapshot payload for a handle.
func (d *DB) GetBackup(ctx context.Context, handle string) ([]timerecord.TimeRecord, error) {
	var blob []byte
	err := d.sql.QueryRowContext(ctx,
		"SELECT records FROM backups WHERE handle = ?", handle).Scan(&blob)
	if err != nil {
		return nil, err
	}
	var records []timerecord.TimeRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListBackups returns snapshot metadata, optionally filtered by user and day.
func (d *DB) ListBackups(ctx context.Context, userID, day string) ([]BackupInfo, error) {
	q := "SELECT handle, user_id, day, taken_at, records FROM backups WHERE 1=1"
	args := []interface{}{}
	if userID != "" {
		q += " AND user_id = ?"
		args = append(args, userID)
	}
	if day != "" {
		q += " AND day = ?"
		args = append(args, day)
	}
	q += " ORDER BY taken_at DESC"

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BackupInfo
	for rows.Next() {
		var (
			info    BackupInfo
			takenAt string
			blob    []byte
		)
		if err := rows.Scan(&info.Handle, &info.UserID, &info.Day, &takenAt, &blob); err != nil {
			return nil, err
		}
		info.TakenAt = parseSQLiteTime(takenAt)
		var records []timerecord.TimeRecord
		if err := json.Unmarshal(blob, &records); err == nil {
			info.Records = len(records)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseSQLiteTime handles the two timestamp formats sqlite hands back.
func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
