package storage

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ledger (
  id        INTEGER PRIMARY KEY,
  day       TEXT NOT NULL,
  user_id   TEXT NOT NULL,
  task_id   TEXT NOT NULL,
  marked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(day, user_id, task_id)
);
CREATE INDEX IF NOT EXISTS idx_ledger_day ON ledger(day);
CREATE TABLE IF NOT EXISTS backups (
  id       INTEGER PRIMARY KEY,
  handle   TEXT NOT NULL UNIQUE,
  user_id  TEXT NOT NULL,
  day      TEXT NOT NULL,
  taken_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  records  BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backups_user_day ON backups(user_id, day);
CREATE TABLE IF NOT EXISTS run_summaries (
  id               INTEGER PRIMARY KEY,
  day              TEXT NOT NULL,
  user_id          TEXT NOT NULL,
  dry_run          INTEGER NOT NULL CHECK (dry_run IN (0,1)),
  found            INTEGER NOT NULL DEFAULT 0,
  transformed      INTEGER NOT NULL DEFAULT 0,
  skipped_no_task  INTEGER NOT NULL DEFAULT 0,
  skipped_zero     INTEGER NOT NULL DEFAULT 0,
  skipped_marked   INTEGER NOT NULL DEFAULT 0,
  skipped_ledger   INTEGER NOT NULL DEFAULT 0,
  failed           INTEGER NOT NULL DEFAULT 0,
  data_loss        INTEGER NOT NULL DEFAULT 0,
  anomalies        INTEGER NOT NULL DEFAULT 0,
  original_seconds INTEGER NOT NULL DEFAULT 0,
  updated_seconds  INTEGER NOT NULL DEFAULT 0,
  error            TEXT,
  finished_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_day ON run_summaries(day, finished_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}
