package engine

import (
	"context"
	"strings"

	"github.com/skalski/evermult/pkg/timerecord"
)

// Mutator is the record-mutate capability family the executor drives. The
// Everhour client implements it; tests substitute fakes.
type Mutator interface {
	PatchRecord(ctx context.Context, recordID string, upd timerecord.Update) (timerecord.TimeRecord, error)
	DeleteRecord(ctx context.Context, recordID string) error
	CreateTaskTime(ctx context.Context, taskID string, entry timerecord.NewEntry) (timerecord.TimeRecord, error)
}

// Executor pushes eligible records through their selected update strategy.
// One Execute call is the unit of work that must either fully complete or be
// cleanly abandoned; the delete-succeeded-create-failed state is detected and
// surfaced, never retried automatically (a retry of the create could
// duplicate the entry).
type Executor struct {
	Mutator    Mutator
	Capability Capability
	DryRun     bool
}

// Execute applies the transformed duration to one record. In dry-run mode it
// short-circuits right after strategy selection: the outcome reports what
// would happen and no mutating call is issued.
func (e *Executor) Execute(ctx context.Context, rec timerecord.TimeRecord, userID string, day timerecord.Date, newSeconds int) Outcome {
	strat := ClassifyUpdateSupport(rec, e.Capability)

	if e.DryRun {
		return Outcome{Kind: OutcomeSuccess, Strategy: strat, NewSeconds: newSeconds, NewRecordID: rec.ID, DryRun: true}
	}

	resolvedUser := rec.User.ID
	if resolvedUser == "" {
		resolvedUser = userID
	}
	comment := markComment(rec.Comment)

	switch strat {
	case StrategyPatch:
		return e.patch(ctx, rec, resolvedUser, day, newSeconds, comment)
	case StrategyAppend:
		out := e.appendTime(ctx, rec, resolvedUser, day, newSeconds, comment)
		if out.Kind == OutcomeFailed {
			// Append did not go through; the original is untouched, so the
			// destructive path is still safe to try.
			return e.replace(ctx, rec, resolvedUser, day, newSeconds, comment)
		}
		return out
	default:
		return e.replace(ctx, rec, resolvedUser, day, newSeconds, comment)
	}
}

func (e *Executor) patch(ctx context.Context, rec timerecord.TimeRecord, userID string, day timerecord.Date, newSeconds int, comment string) Outcome {
	upd := timerecord.Update{
		TimeHMS:  timerecord.SecondsToHMS(newSeconds),
		Date:     day,
		UserID:   userID,
		TaskID:   rec.Task.ID,
		Comment:  comment,
		Billable: rec.Billable,
	}
	// Carrying the project keeps the upstream from silently clearing the
	// association on update.
	if len(rec.Task.Projects) > 0 {
		upd.ProjectID = rec.Task.Projects[0]
	}

	updated, err := e.Mutator.PatchRecord(ctx, rec.ID, upd)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Strategy: StrategyPatch, Err: err}
	}
	id := updated.ID
	if id == "" {
		id = rec.ID
	}
	return Outcome{Kind: OutcomeSuccess, Strategy: StrategyPatch, NewRecordID: id, NewSeconds: newSeconds}
}

func (e *Executor) appendTime(ctx context.Context, rec timerecord.TimeRecord, userID string, day timerecord.Date, newSeconds int, comment string) Outcome {
	created, err := e.Mutator.CreateTaskTime(ctx, rec.Task.ID, timerecord.NewEntry{
		Seconds:  newSeconds,
		Date:     day,
		UserID:   userID,
		Comment:  comment,
		Billable: rec.Billable,
	})
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Strategy: StrategyAppend, Err: err}
	}
	if created.Task.IsZero() {
		// The entry exists but is detached from its task; a later run could
		// double count it. Surface for manual review, do not mark the key.
		return Outcome{Kind: OutcomeAnomaly, Strategy: StrategyAppend, NewRecordID: created.ID, NewSeconds: newSeconds}
	}
	return Outcome{Kind: OutcomeSuccess, Strategy: StrategyAppend, NewRecordID: created.ID, NewSeconds: newSeconds}
}

func (e *Executor) replace(ctx context.Context, rec timerecord.TimeRecord, userID string, day timerecord.Date, newSeconds int, comment string) Outcome {
	if err := e.Mutator.DeleteRecord(ctx, rec.ID); err != nil {
		// Delete failed: original untouched, nothing to roll back.
		return Outcome{Kind: OutcomeFailed, Strategy: StrategyReplace, Err: err}
	}

	created, err := e.Mutator.CreateTaskTime(ctx, rec.Task.ID, timerecord.NewEntry{
		Seconds:  newSeconds,
		Date:     day,
		UserID:   userID,
		Comment:  comment,
		Billable: rec.Billable,
	})
	if err != nil {
		// The original is gone and no replacement exists. Lost tracked time.
		return Outcome{Kind: OutcomeDataLoss, Strategy: StrategyReplace, Err: err, NewSeconds: newSeconds}
	}
	return Outcome{Kind: OutcomeSuccess, Strategy: StrategyReplace, NewRecordID: created.ID, NewSeconds: newSeconds}
}

func markComment(comment string) string {
	if strings.Contains(comment, timerecord.Marker) {
		return comment
	}
	return strings.TrimSpace(comment + " " + timerecord.Marker)
}
