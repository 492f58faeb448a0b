package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/skalski/evermult/pkg/engine"
	"github.com/skalski/evermult/pkg/storage"
	"github.com/skalski/evermult/pkg/timerecord"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Source is the record-fetch capability. The Everhour client implements it.
type Source interface {
	FetchDay(ctx context.Context, userID string, day timerecord.Date) ([]timerecord.TimeRecord, error)
}

// RunConfig is everything one run needs, passed by value so concurrent runs
// never observe each other's overrides.
type RunConfig struct {
	Users       []string
	Multiplier  float64
	DryRun      bool
	Capability  engine.Capability
	Concurrency int // users processed in parallel; <= 1 means sequential
}

// Validate rejects configurations that must abort before any run starts.
func (c RunConfig) Validate() error {
	if err := engine.ValidateMultiplier(c.Multiplier); err != nil {
		return err
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("empty user roster")
	}
	return nil
}

// RunSummary is the per-user aggregate of one run. It is returned, not
// persisted, by the runner; the storage layer keeps a copy for the dashboard.
type RunSummary struct {
	UserID          string
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
	Err             error
}

// OriginalHours and UpdatedHours report durations the way the dashboard
// shows them.
func (s RunSummary) OriginalHours() float64 { return timerecord.Hours(s.OriginalSeconds) }
func (s RunSummary) UpdatedHours() float64  { return timerecord.Hours(s.UpdatedSeconds) }

// Runner drives full batch runs. It owns the in-process set of already
// completed dates; the ledger in the DB owns per-record idempotency.
type Runner struct {
	Source  Source
	Mutator engine.Mutator
	DB      *storage.DB
	Log     Logger

	mu        sync.Mutex
	completed map[timerecord.Date]bool
}

// ErrDateAlreadyRun is returned when a non-dry run is requested twice for the
// same date within one process lifetime.
type ErrDateAlreadyRun struct{ Day timerecord.Date }

func (e *ErrDateAlreadyRun) Error() string {
	return fmt.Sprintf("date %s already processed in this run cycle", e.Day)
}

// RunForDate processes every configured user for one calendar day. One user's
// failure never aborts the remaining users; only configuration errors abort
// the whole run. A repeated call for an already completed date is a warned
// no-op, except in dry-run mode, which is repeatable by design.
func (r *Runner) RunForDate(ctx context.Context, day timerecord.Date, cfg RunConfig) ([]RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := r.Log
	if log == nil {
		log = nopLogger{}
	}

	if !cfg.DryRun {
		r.mu.Lock()
		if r.completed[day] {
			r.mu.Unlock()
			log.Warnf("Skipping %s: already processed in this run cycle", day)
			return nil, &ErrDateAlreadyRun{Day: day}
		}
		r.mu.Unlock()
	}

	mode := "live"
	if cfg.DryRun {
		mode = "dry-run"
	}
	log.Infof("Starting %s run for %s: %d users, multiplier %.2f", mode, day, len(cfg.Users), cfg.Multiplier)

	summaries := r.processUsers(ctx, day, cfg, log)

	if !cfg.DryRun {
		r.mu.Lock()
		if r.completed == nil {
			r.completed = make(map[timerecord.Date]bool)
		}
		r.completed[day] = true
		r.mu.Unlock()

		r.persistSummaries(ctx, day, cfg, summaries, log)
	}

	log.Infof("Run for %s finished", day)
	return summaries, nil
}

// processUsers fans users out over a small worker pool when Concurrency > 1.
// Each user's record set is independent, and the ledger insert is atomic per
// key, so parallel users are safe.
func (r *Runner) processUsers(ctx context.Context, day timerecord.Date, cfg RunConfig, log Logger) []RunSummary {
	if cfg.Concurrency <= 1 {
		summaries := make([]RunSummary, 0, len(cfg.Users))
		for _, userID := range cfg.Users {
			summaries = append(summaries, r.processUser(ctx, userID, day, cfg, log))
		}
		return summaries
	}

	summaries := make([]RunSummary, len(cfg.Users))
	jobs := make(chan int, len(cfg.Users))
	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for w := 0; w < cfg.Concurrency; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				summaries[i] = r.processUser(ctx, cfg.Users[i], day, cfg, log)
			}
		}()
	}
	for i := range cfg.Users {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return summaries
}

// processUser runs fetch → backup → classify → transform → execute → ledger
// for a single user. Any failure here is folded into the summary.
func (r *Runner) processUser(ctx context.Context, userID string, day timerecord.Date, cfg RunConfig, log Logger) RunSummary {
	summary := RunSummary{UserID: userID}

	records, err := r.Source.FetchDay(ctx, userID, day)
	if err != nil {
		// Per-user failure, not fatal to the batch. No retry here; the
		// transport already retried at its own level.
		log.Errorf("Fetch failed for %s on %s: %v", userID, day, err)
		summary.Err = err
		return summary
	}
	summary.Found = len(records)
	if len(records) == 0 {
		log.Debugf("No records for %s on %s", userID, day)
		return summary
	}

	// Snapshot before the first mutating call for this user/date. A backup
	// write failure is a warning, not a gate: bookkeeping is best-effort.
	if !cfg.DryRun {
		if handle, err := r.DB.SaveBackup(ctx, userID, day, records); err != nil {
			log.Warnf("Backup failed for %s on %s: %v (continuing)", userID, day, err)
		} else {
			log.Debugf("Backup %s written for %s on %s (%d records)", handle, userID, day, len(records))
		}
	}

	executor := &engine.Executor{Mutator: r.Mutator, Capability: cfg.Capability, DryRun: cfg.DryRun}

	for _, rec := range records {
		eligible, reason, err := engine.Classify(ctx, rec, userID, day, r.DB)
		if err != nil {
			log.Errorf("Ledger check failed for record %s: %v", rec.ID, err)
			summary.Failed++
			continue
		}
		if !eligible {
			switch reason {
			case engine.SkipZeroDuration:
				summary.SkippedZero++
			case engine.SkipNoTask:
				summary.SkippedNoTask++
			case engine.SkipMarked:
				summary.SkippedMarked++
			case engine.SkipProcessed:
				summary.SkippedLedger++
			}
			log.Debugf("Skipping record %s: %s", rec.ID, reason)
			continue
		}

		newSeconds := engine.Transform(rec.Seconds, cfg.Multiplier)
		outcome := executor.Execute(ctx, rec, userID, day, newSeconds)
		r.applyOutcome(ctx, &summary, rec, userID, day, outcome, log)
	}

	return summary
}

func (r *Runner) applyOutcome(ctx context.Context, summary *RunSummary, rec timerecord.TimeRecord, userID string, day timerecord.Date, outcome engine.Outcome, log Logger) {
	key := engine.Key(rec, userID, day)

	switch outcome.Kind {
	case engine.OutcomeSuccess:
		if outcome.DryRun {
			log.Infof("[DRY RUN] Would %s record %s (task %s, user %s): %s -> %s",
				outcome.Strategy, rec.ID, key.TaskID, key.UserID,
				timerecord.SecondsToHMS(rec.Seconds), timerecord.SecondsToHMS(outcome.NewSeconds))
		} else {
			if err := r.DB.MarkProcessed(ctx, key); err != nil {
				// Remote state and ledger can drift here; accepted and
				// surfaced rather than undoing the successful mutation.
				log.Warnf("Ledger write failed for %s: %v (remote already updated)", key, err)
			}
			log.Infof("Updated record %s via %s: %s -> %s",
				rec.ID, outcome.Strategy,
				timerecord.SecondsToHMS(rec.Seconds), timerecord.SecondsToHMS(outcome.NewSeconds))
		}
		summary.Transformed++
		summary.OriginalSeconds += rec.Seconds
		summary.UpdatedSeconds += outcome.NewSeconds

	case engine.OutcomeFailed:
		log.Errorf("Update failed for record %s (task %s): %v", rec.ID, key.TaskID, outcome.Err)
		summary.Failed++

	case engine.OutcomeDataLoss:
		// Original deleted, replacement missing. The pre-run backup is the
		// only copy; reconciliation is manual and needs all coordinates.
		log.Errorf("DATA LOSS: record %s deleted without replacement (duration %s, task %s, user %s, date %s): %v",
			rec.ID, timerecord.SecondsToHMS(rec.Seconds), key.TaskID, key.UserID, day, outcome.Err)
		summary.DataLoss++

	case engine.OutcomeAnomaly:
		log.Errorf("Anomaly: created entry %s has no task reference (task %s, user %s, date %s); not marking ledger",
			outcome.NewRecordID, key.TaskID, key.UserID, day)
		summary.Anomalies++
	}
}

// persistSummaries stores summaries for the dashboard, best effort.
func (r *Runner) persistSummaries(ctx context.Context, day timerecord.Date, cfg RunConfig, summaries []RunSummary, log Logger) {
	for _, s := range summaries {
		row := storage.RunRow{
			Day:             day.String(),
			UserID:          s.UserID,
			DryRun:          cfg.DryRun,
			Found:           s.Found,
			Transformed:     s.Transformed,
			SkippedNoTask:   s.SkippedNoTask,
			SkippedZero:     s.SkippedZero,
			SkippedMarked:   s.SkippedMarked,
			SkippedLedger:   s.SkippedLedger,
			Failed:          s.Failed,
			DataLoss:        s.DataLoss,
			Anomalies:       s.Anomalies,
			OriginalSeconds: s.OriginalSeconds,
			UpdatedSeconds:  s.UpdatedSeconds,
		}
		if s.Err != nil {
			row.Error = s.Err.Error()
		}
		if err := r.DB.SaveRunRow(ctx, row); err != nil {
			log.Warnf("Could not persist run summary for %s: %v", s.UserID, err)
		}
	}
}
