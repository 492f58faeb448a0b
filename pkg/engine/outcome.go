package engine

// SkipReason explains why a record was left alone. Skips are expected and
// counted, not logged as errors.
type SkipReason string

const (
	SkipZeroDuration SkipReason = "zero-or-negative-duration"
	SkipNoTask       SkipReason = "no-task"
	SkipMarked       SkipReason = "already-marked"
	SkipProcessed    SkipReason = "already-processed"
)

// OutcomeKind is the tri-state-plus result of executing one record's update.
type OutcomeKind int

const (
	// OutcomeSuccess means the remote mutation happened (or, in dry-run
	// mode, would have happened) and the record may be marked in the ledger.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeSkipped means the executor decided not to touch the record.
	OutcomeSkipped
	// OutcomeFailed means the mutation failed and the original record is
	// intact. Nothing to roll back.
	OutcomeFailed
	// OutcomeDataLoss means the original record was deleted but the
	// replacement was never created. The lost tracked time exists only in
	// the pre-run backup. Must never be marked in the ledger.
	OutcomeDataLoss
	// OutcomeAnomaly means the additive create returned a record without a
	// task reference. A later run could double count, so the key is not
	// marked and the condition is surfaced for manual review.
	OutcomeAnomaly
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeDataLoss:
		return "partial-failure-data-loss"
	case OutcomeAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

// Outcome is the result of pushing one eligible record through its update
// strategy. Failure handling upstream switches on Kind exhaustively; no
// per-record control flow runs on panics or sentinel errors.
type Outcome struct {
	Kind        OutcomeKind
	Strategy    Strategy
	Skip        SkipReason
	Err         error
	NewRecordID string
	NewSeconds  int
	DryRun      bool
}
