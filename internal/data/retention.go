package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
)

// retentionRepo implements the Retention repository
type retentionRepo struct {
	db *sql.DB
}

// CandidatesForCheck selects subscribe events dated exactly windowDays
// before asOf with no verdict for that check date yet. The memo probe is
// keyed on the (journal row, check date) pair so the same subscription is
// still a candidate for each configured window.
func (r *retentionRepo) CandidatesForCheck(ctx context.Context, windowDays int, asOf time.Time) ([]*domain.JournalEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT j.id, j.occurred_at, j.event_type, j.subject_external_id, j.subject_handle,
			j.subject_name, j.inviter_id, j.status, j.note, j.delivery_id
		FROM journal j
		WHERE j.event_type = 'subscribe'
		AND date(j.occurred_at) = date(?, ?)
		AND NOT EXISTS (
			SELECT 1 FROM retention_checks rc
			WHERE rc.journal_id = j.id AND rc.check_date = ?
		)
	`, fmtDate(asOf), fmt.Sprintf("-%d days", windowDays), fmtDate(asOf))
	if err != nil {
		return nil, &domain.StorageError{Op: "select retention candidates", Err: err}
	}
	defer rows.Close()

	var events []*domain.JournalEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// HasLaterUnsubscribe probes the journal for a contradicting event. The
// question is global per subject: any later unsubscribe anywhere counts.
func (r *retentionRepo) HasLaterUnsubscribe(ctx context.Context, subjectExternalID int64, after time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM journal
		WHERE subject_external_id = ? AND event_type = 'unsubscribe' AND occurred_at > ?
	`, subjectExternalID, fmtTime(after)).Scan(&count)
	if err != nil {
		return false, &domain.StorageError{Op: "probe later unsubscribe", Err: err}
	}
	return count > 0, nil
}

// InsertCheck records one verdict; a duplicate (journal_id, check_date)
// pair is silently ignored, which makes same-day re-runs no-ops.
func (r *retentionRepo) InsertCheck(ctx context.Context, journalEventID int64, checkDate time.Time, result domain.RetentionResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO retention_checks (journal_id, check_date, result) VALUES (?, ?, ?)
	`, journalEventID, fmtDate(checkDate), string(result))
	if err != nil {
		return &domain.StorageError{Op: "insert retention check", Err: err}
	}
	return nil
}

// CheckCounts tallies stored verdicts for one cohort.
func (r *retentionRepo) CheckCounts(ctx context.Context, windowDays int, asOf time.Time) (int, int, error) {
	var retained, notRetained int
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN rc.result = 'retained' THEN 1 END),
			COUNT(CASE WHEN rc.result = 'not_retained' THEN 1 END)
		FROM retention_checks rc
		JOIN journal j ON rc.journal_id = j.id
		WHERE rc.check_date = ? AND date(j.occurred_at) = date(?, ?)
	`, fmtDate(asOf), fmtDate(asOf), fmt.Sprintf("-%d days", windowDays)).Scan(&retained, &notRetained)
	if err != nil {
		return 0, 0, &domain.StorageError{Op: "count retention checks", Err: err}
	}
	return retained, notRetained, nil
}

// ChecksJoined returns all verdicts joined with their subscriptions for
// export, newest check first.
func (r *retentionRepo) ChecksJoined(ctx context.Context) ([]*domain.RetentionCheckRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rc.journal_id, rc.check_date, rc.result,
			j.subject_external_id, j.subject_handle, j.occurred_at
		FROM retention_checks rc
		JOIN journal j ON rc.journal_id = j.id
		ORDER BY rc.check_date DESC, j.occurred_at DESC
	`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list retention checks", Err: err}
	}
	defer rows.Close()

	var records []*domain.RetentionCheckRecord
	for rows.Next() {
		var rec domain.RetentionCheckRecord
		var checkDate, result, subscribedAt string
		var handle sql.NullString
		if err := rows.Scan(&rec.JournalEventID, &checkDate, &result,
			&rec.SubjectExternalID, &handle, &subscribedAt); err != nil {
			return nil, &domain.StorageError{Op: "scan retention check", Err: err}
		}
		rec.Result = domain.RetentionResult(result)
		rec.SubjectHandle = handle.String
		if rec.CheckDate, err = parseDate(checkDate); err != nil {
			return nil, fmt.Errorf("malformed check_date %q: %w", checkDate, err)
		}
		if rec.SubscribedAt, err = parseTime(subscribedAt); err != nil {
			return nil, fmt.Errorf("malformed occurred_at %q: %w", subscribedAt, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
