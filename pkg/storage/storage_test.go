package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/skalski/evermult/pkg/timerecord"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "evermult.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLedgerMarkAndCheck(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	key := LedgerKey{Day: "2024-05-01", UserID: "u1", TaskID: "t1"}

	processed, err := db.IsProcessed(ctx, key)
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if processed {
		t.Fatal("fresh key should not be processed")
	}

	if err := db.MarkProcessed(ctx, key); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	processed, err = db.IsProcessed(ctx, key)
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if !processed {
		t.Fatal("marked key should be processed")
	}

	// Double-mark must be a no-op, not an error.
	if err := db.MarkProcessed(ctx, key); err != nil {
		t.Fatalf("second MarkProcessed: %v", err)
	}

	// Neighboring keys stay independent.
	other, err := db.IsProcessed(ctx, LedgerKey{Day: "2024-05-02", UserID: "u1", TaskID: "t1"})
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if other {
		t.Fatal("different day must not be processed")
	}
}

func TestLedgerRejectsIncompleteKey(t *testing.T) {
	db := openTestDB(t)
	if err := db.MarkProcessed(context.Background(), LedgerKey{Day: "2024-05-01", UserID: "u1"}); err == nil {
		t.Fatal("expected error for key without task id")
	}
}

func TestLedgerStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	keys := []LedgerKey{
		{Day: "2024-05-01", UserID: "u1", TaskID: "t1"},
		{Day: "2024-05-02", UserID: "u1", TaskID: "t1"},
		{Day: "2024-05-01", UserID: "u2", TaskID: "t9"},
	}
	for _, k := range keys {
		if err := db.MarkProcessed(ctx, k); err != nil {
			t.Fatalf("MarkProcessed: %v", err)
		}
	}

	stats, err := db.GetLedgerStats(ctx)
	if err != nil {
		t.Fatalf("GetLedgerStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 users, got %d", len(stats))
	}
	if stats[0].UserID != "u1" || stats[0].Entries != 2 || stats[0].LastDay != "2024-05-02" {
		t.Errorf("bad u1 stats: %+v", stats[0])
	}
}

func TestBackupRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	records := []timerecord.TimeRecord{
		{ID: "r1", Date: "2024-05-01", Seconds: 7200, Task: timerecord.Ref{ID: "t1"}, User: timerecord.Ref{ID: "u1"}, Comment: "work"},
		{ID: "r2", Date: "2024-05-01", Seconds: 300, User: timerecord.Ref{ID: "u1"}},
	}
	handle, err := db.SaveBackup(ctx, "u1", "2024-05-01", records)
	if err != nil {
		t.Fatalf("SaveBackup: %v", err)
	}
	if handle == "" {
		t.Fatal("empty backup handle")
	}

	got, err := db.GetBackup(ctx, handle)
	if err != nil {
		t.Fatalf("GetBackup: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r1" || got[0].Seconds != 7200 || got[0].Task.ID != "t1" {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	infos, err := db.ListBackups(ctx, "u1", "2024-05-01")
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(infos) != 1 || infos[0].Handle != handle || infos[0].Records != 2 {
		t.Errorf("bad backup info: %+v", infos)
	}

	none, err := db.ListBackups(ctx, "u2", "")
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no backups for u2, got %d", len(none))
	}
}

func TestRunRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	row := RunRow{
		Day: "2024-05-01", UserID: "u1",
		Found: 3, Transformed: 2, SkippedNoTask: 1,
		OriginalSeconds: 7200, UpdatedSeconds: 10800,
	}
	if err := db.SaveRunRow(ctx, row); err != nil {
		t.Fatalf("SaveRunRow: %v", err)
	}
	if err := db.SaveRunRow(ctx, RunRow{Day: "2024-05-01", UserID: "u2", DryRun: true, Error: "fetch failed"}); err != nil {
		t.Fatalf("SaveRunRow: %v", err)
	}

	rows, err := db.ListRunRows(ctx, 10)
	if err != nil {
		t.Fatalf("ListRunRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Newest first.
	if rows[0].UserID != "u2" || !rows[0].DryRun || rows[0].Error != "fetch failed" {
		t.Errorf("bad first row: %+v", rows[0])
	}
	if rows[1].Transformed != 2 || rows[1].UpdatedSeconds != 10800 {
		t.Errorf("bad second row: %+v", rows[1])
	}
}
