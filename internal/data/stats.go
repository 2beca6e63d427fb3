package data

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
)

// statsRepo implements the Stats repository. Every query derives state from
// the journal; "currently subscribed" is always the anti-join "no later
// unsubscribe for this subject", never a stored flag.
type statsRepo struct {
	db *sql.DB
}

// PeriodStats counts activity for dates in [start, end).
func (r *statsRepo) PeriodStats(ctx context.Context, start, end time.Time) (*domain.PeriodStats, error) {
	var stats domain.PeriodStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN event_type = 'subscribe' THEN 1 END),
			COUNT(CASE WHEN event_type = 'unsubscribe' THEN 1 END),
			COUNT(DISTINCT CASE WHEN event_type = 'subscribe' THEN subject_external_id END),
			COUNT(CASE WHEN event_type = 'subscribe' AND note LIKE '%repeat%' THEN 1 END)
		FROM journal
		WHERE date(occurred_at) >= ? AND date(occurred_at) < ?
	`, fmtDate(start), fmtDate(end)).Scan(
		&stats.Subscribes, &stats.Unsubscribes, &stats.UniqueSubscribers, &stats.RepeatSubscribers)
	if err != nil {
		return nil, &domain.StorageError{Op: "period stats", Err: err}
	}
	stats.NetGrowth = stats.Subscribes - stats.Unsubscribes
	return &stats, nil
}

// InviterStats returns the per-inviter rollup. NULLIF guards the empty
// denominator: an inviter with no attributed subscribes reports 0.
func (r *statsRepo) InviterStats(ctx context.Context) ([]*domain.InviterStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			i.id,
			COALESCE(i.handle, i.name),
			COUNT(CASE WHEN j.event_type = 'subscribe' THEN 1 END) AS total_invited,
			COUNT(CASE WHEN j.event_type = 'subscribe' AND j.subject_external_id NOT IN (
				SELECT j2.subject_external_id FROM journal j2
				WHERE j2.event_type = 'unsubscribe' AND j2.occurred_at > j.occurred_at
			) THEN 1 END) AS currently_subscribed,
			COUNT(CASE WHEN j.event_type = 'subscribe' AND j.subject_external_id IN (
				SELECT j2.subject_external_id FROM journal j2
				WHERE j2.event_type = 'unsubscribe' AND j2.occurred_at > j.occurred_at
			) THEN 1 END) AS unsubscribed,
			ROUND(
				CAST(COUNT(CASE WHEN j.event_type = 'subscribe' AND j.subject_external_id NOT IN (
					SELECT j2.subject_external_id FROM journal j2
					WHERE j2.event_type = 'unsubscribe' AND j2.occurred_at > j.occurred_at
				) THEN 1 END) AS FLOAT) * 100.0 /
				NULLIF(COUNT(CASE WHEN j.event_type = 'subscribe' THEN 1 END), 0), 2
			)
		FROM inviters i
		LEFT JOIN journal j ON i.id = j.inviter_id
		GROUP BY i.id, i.name, i.handle
		ORDER BY total_invited DESC
	`)
	if err != nil {
		return nil, &domain.StorageError{Op: "inviter stats", Err: err}
	}
	defer rows.Close()

	var result []*domain.InviterStats
	for rows.Next() {
		var s domain.InviterStats
		var pct sql.NullFloat64
		if err := rows.Scan(&s.InviterID, &s.InviterLabel, &s.TotalInvited,
			&s.CurrentlySubscribed, &s.Unsubscribed, &pct); err != nil {
			return nil, &domain.StorageError{Op: "scan inviter stats", Err: err}
		}
		s.RetentionPercentage = pct.Float64
		result = append(result, &s)
	}
	return result, rows.Err()
}

// ActiveSubscriberCount counts subjects whose latest subscribe has no later
// unsubscribe.
func (r *statsRepo) ActiveSubscriberCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT j1.subject_external_id) FROM journal j1
		WHERE j1.event_type = 'subscribe'
		AND j1.subject_external_id NOT IN (
			SELECT j2.subject_external_id FROM journal j2
			WHERE j2.event_type = 'unsubscribe' AND j2.occurred_at > j1.occurred_at
		)
	`).Scan(&count)
	if err != nil {
		return 0, &domain.StorageError{Op: "active subscriber count", Err: err}
	}
	return count, nil
}

// TopInvitersForDate ranks inviters by subscribes on one day.
func (r *statsRepo) TopInvitersForDate(ctx context.Context, date time.Time, limit int) ([]*domain.TopInviter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			COALESCE(i.handle, i.name),
			COUNT(*) AS invited_count,
			COUNT(CASE WHEN j1.subject_external_id NOT IN (
				SELECT j2.subject_external_id FROM journal j2
				WHERE j2.event_type = 'unsubscribe' AND j2.occurred_at > j1.occurred_at
			) THEN 1 END) AS retained_count
		FROM journal j1
		JOIN inviters i ON j1.inviter_id = i.id
		WHERE j1.event_type = 'subscribe' AND date(j1.occurred_at) = ?
		GROUP BY i.id, i.name, i.handle
		ORDER BY invited_count DESC
		LIMIT ?
	`, fmtDate(date), limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "top inviters", Err: err}
	}
	defer rows.Close()

	var result []*domain.TopInviter
	for rows.Next() {
		var t domain.TopInviter
		if err := rows.Scan(&t.InviterLabel, &t.Invited, &t.Retained); err != nil {
			return nil, &domain.StorageError{Op: "scan top inviter", Err: err}
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// SubjectProfile looks a subject up by numeric external id or by handle and
// derives counts, current status and chronological history from the journal.
func (r *statsRepo) SubjectProfile(ctx context.Context, query string) (*domain.SubjectProfile, error) {
	externalID, err := r.resolveSubject(ctx, query)
	if err != nil || externalID == 0 {
		return nil, err
	}

	var profile domain.SubjectProfile
	profile.ExternalID = externalID

	var handle, name, firstSub, lastActivity sql.NullString
	err = r.db.QueryRowContext(ctx, `
		SELECT
			MAX(subject_handle),
			MAX(subject_name),
			COUNT(CASE WHEN event_type = 'subscribe' THEN 1 END),
			COUNT(CASE WHEN event_type = 'unsubscribe' THEN 1 END),
			MIN(CASE WHEN event_type = 'subscribe' THEN occurred_at END),
			MAX(occurred_at)
		FROM journal
		WHERE subject_external_id = ?
	`, externalID).Scan(&handle, &name, &profile.Subscribes, &profile.Unsubscribes, &firstSub, &lastActivity)
	if err != nil {
		return nil, &domain.StorageError{Op: "subject profile", Err: err}
	}
	if !lastActivity.Valid {
		// No journal rows at all.
		return nil, nil
	}
	profile.Handle = handle.String
	profile.Name = name.String
	if firstSub.Valid {
		if profile.FirstSubscribed, err = parseTime(firstSub.String); err != nil {
			return nil, fmt.Errorf("malformed occurred_at %q: %w", firstSub.String, err)
		}
	}
	if profile.LastActivity, err = parseTime(lastActivity.String); err != nil {
		return nil, fmt.Errorf("malformed occurred_at %q: %w", lastActivity.String, err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM journal j1
			WHERE j1.subject_external_id = ? AND j1.event_type = 'subscribe'
			AND NOT EXISTS (
				SELECT 1 FROM journal j2
				WHERE j2.subject_external_id = j1.subject_external_id
				AND j2.event_type = 'unsubscribe' AND j2.occurred_at > j1.occurred_at
			)
		)
	`, externalID).Scan(&profile.Active)
	if err != nil {
		return nil, &domain.StorageError{Op: "subject status", Err: err}
	}

	profile.History, err = r.subjectHistory(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *statsRepo) resolveSubject(ctx context.Context, query string) (int64, error) {
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		return id, nil
	}
	handle := strings.TrimPrefix(query, "@")
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT subject_external_id FROM journal WHERE subject_handle = ? LIMIT 1
	`, handle).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &domain.StorageError{Op: "resolve subject", Err: err}
	}
	return id, nil
}

func (r *statsRepo) subjectHistory(ctx context.Context, externalID int64) ([]domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT j.id, j.occurred_at, j.event_type, j.subject_external_id,
			j.subject_handle, j.subject_name, COALESCE(i.handle, i.name, ''), j.status, COALESCE(j.note, '')
		FROM journal j
		LEFT JOIN inviters i ON j.inviter_id = i.id
		WHERE j.subject_external_id = ?
		ORDER BY j.occurred_at ASC
	`, externalID)
	if err != nil {
		return nil, &domain.StorageError{Op: "subject history", Err: err}
	}
	defer rows.Close()
	return scanHistory(rows)
}

// JournalExport returns the full history joined with inviter labels.
func (r *statsRepo) JournalExport(ctx context.Context) ([]*domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT j.id, j.occurred_at, j.event_type, j.subject_external_id,
			j.subject_handle, j.subject_name, COALESCE(i.handle, i.name, ''), j.status, COALESCE(j.note, '')
		FROM journal j
		LEFT JOIN inviters i ON j.inviter_id = i.id
		ORDER BY j.occurred_at DESC
	`)
	if err != nil {
		return nil, &domain.StorageError{Op: "journal export", Err: err}
	}
	defer rows.Close()

	entries, err := scanHistory(rows)
	if err != nil {
		return nil, err
	}
	result := make([]*domain.HistoryEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}

// InviterInviteStats summarizes one inviter's recruiting record.
func (r *statsRepo) InviterInviteStats(ctx context.Context, inviterID int64) (*domain.InviteStats, error) {
	var stats domain.InviteStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM journal WHERE inviter_id = ? AND event_type = 'subscribe'
	`, inviterID).Scan(&stats.TotalInvited)
	if err != nil {
		return nil, &domain.StorageError{Op: "invite stats", Err: err}
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT j1.subject_external_id) FROM journal j1
		WHERE j1.inviter_id = ? AND j1.event_type = 'subscribe'
		AND j1.subject_external_id NOT IN (
			SELECT j2.subject_external_id FROM journal j2
			WHERE j2.event_type = 'unsubscribe' AND j2.occurred_at > j1.occurred_at
		)
	`, inviterID).Scan(&stats.CurrentlyActive)
	if err != nil {
		return nil, &domain.StorageError{Op: "invite stats", Err: err}
	}
	return &stats, nil
}

func scanHistory(rows *sql.Rows) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var occurred, eventType, status string
		var handle, name sql.NullString
		if err := rows.Scan(&e.EventID, &occurred, &eventType, &e.SubjectExternalID,
			&handle, &name, &e.InviterLabel, &status, &e.Note); err != nil {
			return nil, &domain.StorageError{Op: "scan history entry", Err: err}
		}
		var err error
		if e.OccurredAt, err = parseTime(occurred); err != nil {
			return nil, fmt.Errorf("malformed occurred_at %q: %w", occurred, err)
		}
		e.Type = domain.EventType(eventType)
		e.Status = domain.MemberStatus(status)
		e.SubjectHandle = handle.String
		e.SubjectName = name.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
