package engine

import (
	"context"

	"github.com/skalski/evermult/pkg/storage"
	"github.com/skalski/evermult/pkg/timerecord"
)

// Ledger is the read side of the idempotency ledger the classifier consults.
type Ledger interface {
	IsProcessed(ctx context.Context, key storage.LedgerKey) (bool, error)
}

// Key builds the ledger key for a record processed on behalf of userID.
// Records sometimes arrive without a user reference; the batch user fills in.
func Key(rec timerecord.TimeRecord, userID string, day timerecord.Date) storage.LedgerKey {
	resolvedUser := rec.User.ID
	if resolvedUser == "" {
		resolvedUser = userID
	}
	return storage.LedgerKey{Day: day, UserID: resolvedUser, TaskID: rec.Task.ID}
}

// Classify decides whether a record is eligible for transformation this run.
// Checks run in a fixed order and the first match wins; ok=false carries the
// skip reason. A ledger read error is returned as-is and counts against the
// record, not the whole user.
func Classify(ctx context.Context, rec timerecord.TimeRecord, userID string, day timerecord.Date, ledger Ledger) (ok bool, reason SkipReason, err error) {
	if rec.Seconds <= 0 {
		return false, SkipZeroDuration, nil
	}
	if rec.Task.IsZero() {
		// No task means no safe write target for any strategy.
		return false, SkipNoTask, nil
	}
	if rec.Marked() {
		return false, SkipMarked, nil
	}
	processed, err := ledger.IsProcessed(ctx, Key(rec, userID, day))
	if err != nil {
		return false, "", err
	}
	if processed {
		return false, SkipProcessed, nil
	}
	return true, "", nil
}
