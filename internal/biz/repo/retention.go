package repo

import (
	"context"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
)

// RetentionRepo persists retention verdicts. Each (journal event, check
// date) pair gets at most one row, which makes batch evaluation idempotent
// and restartable.
type RetentionRepo interface {
	// CandidatesForCheck returns subscribe events dated exactly windowDays
	// before asOf that have no verdict for that check date yet. A
	// subscription decided under one window stays a candidate for the
	// others.
	CandidatesForCheck(ctx context.Context, windowDays int, asOf time.Time) ([]*domain.JournalEvent, error)

	// HasLaterUnsubscribe reports whether the subject has any unsubscribe
	// event strictly after the given time, regardless of inviter or chat.
	HasLaterUnsubscribe(ctx context.Context, subjectExternalID int64, after time.Time) (bool, error)

	// InsertCheck records one verdict. A duplicate (journal event, date)
	// pair is a silent no-op.
	InsertCheck(ctx context.Context, journalEventID int64, checkDate time.Time, result domain.RetentionResult) error

	// CheckCounts returns the stored verdict tallies for the cohort of
	// subscribe events windowDays before asOf, checked on asOf.
	CheckCounts(ctx context.Context, windowDays int, asOf time.Time) (retained, notRetained int, err error)

	// ChecksJoined returns every stored verdict joined with its
	// subscription, newest check first, for export.
	ChecksJoined(ctx context.Context) ([]*domain.RetentionCheckRecord, error)
}
