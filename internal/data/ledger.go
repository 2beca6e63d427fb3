package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
)

// ledgerRepo implements the Ledger repository
type ledgerRepo struct {
	db *sql.DB
}

// UpsertSubject inserts the subject or backfills missing handle/name.
// COALESCE keeps present values when the incoming ones are unknown.
func (r *ledgerRepo) UpsertSubject(ctx context.Context, externalID int64, handle, name string) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subjects (external_id, handle, name) VALUES (?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			handle = COALESCE(excluded.handle, handle),
			name = COALESCE(excluded.name, name)
	`, externalID, nullStr(handle), nullStr(name))
	if err != nil {
		return 0, &domain.StorageError{Op: "upsert subject", Err: err}
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `SELECT id FROM subjects WHERE external_id = ?`, externalID).Scan(&id)
	if err != nil {
		return 0, &domain.StorageError{Op: "select subject id", Err: err}
	}
	return id, nil
}

// UpsertInviter looks the inviter up by handle or name and updates in place,
// keeping the id stable so journal rows stay attributable. Inserts otherwise.
func (r *ledgerRepo) UpsertInviter(ctx context.Context, inviter *domain.Inviter) (int64, error) {
	handle := domain.NormalizeHandle(inviter.Handle)

	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM inviters WHERE handle = ? OR name = ?
	`, nullStr(handle), inviter.Name).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO inviters (name, handle, invite_token, source_channel) VALUES (?, ?, ?, ?)
		`, inviter.Name, nullStr(handle), nullStr(inviter.InviteToken), nullStr(inviter.SourceChannel))
		if err != nil {
			return 0, &domain.StorageError{Op: "insert inviter", Err: err}
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, &domain.StorageError{Op: "insert inviter", Err: err}
		}
		return id, nil
	case err != nil:
		return 0, &domain.StorageError{Op: "find inviter", Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE inviters SET name = ?, handle = ?,
			invite_token = COALESCE(?, invite_token),
			source_channel = COALESCE(?, source_channel)
		WHERE id = ?
	`, inviter.Name, nullStr(handle), nullStr(inviter.InviteToken), nullStr(inviter.SourceChannel), id)
	if err != nil {
		return 0, &domain.StorageError{Op: "update inviter", Err: err}
	}
	return id, nil
}

// FindInviterByToken resolves an invite token, 0 when unknown.
func (r *ledgerRepo) FindInviterByToken(ctx context.Context, token string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM inviters WHERE invite_token = ?`, token).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &domain.StorageError{Op: "find inviter by token", Err: err}
	}
	return id, nil
}

// ListInviters lists all registered inviters
func (r *ledgerRepo) ListInviters(ctx context.Context) ([]*domain.Inviter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, handle, invite_token, source_channel FROM inviters ORDER BY name
	`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list inviters", Err: err}
	}
	defer rows.Close()

	var inviters []*domain.Inviter
	for rows.Next() {
		var inv domain.Inviter
		var handle, token, source sql.NullString
		if err := rows.Scan(&inv.ID, &inv.Name, &handle, &token, &source); err != nil {
			return nil, &domain.StorageError{Op: "scan inviter", Err: err}
		}
		inv.Handle = handle.String
		inv.InviteToken = token.String
		inv.SourceChannel = source.String
		inviters = append(inviters, &inv)
	}
	return inviters, rows.Err()
}

// AppendEvent appends one journal row. Re-delivery of a known delivery id
// resolves to the existing row instead of erroring or duplicating.
func (r *ledgerRepo) AppendEvent(ctx context.Context, ev *domain.JournalEvent) (int64, bool, error) {
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	note := ev.Note
	if ev.Type == domain.EventSubscribe && ev.InviterID != 0 {
		// Unbounded lookback: any earlier subscribe credited elsewhere
		// flags this one as a repeat.
		var prior int
		err := r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM journal
			WHERE subject_external_id = ? AND event_type = 'subscribe'
			AND inviter_id IS NOT NULL AND inviter_id != ?
		`, ev.SubjectExternalID, ev.InviterID).Scan(&prior)
		if err != nil {
			return 0, false, &domain.StorageError{Op: "check repeat invite", Err: err}
		}
		if prior > 0 {
			if note == "" {
				note = domain.NoteRepeat
			} else {
				note = note + "," + domain.NoteRepeat
			}
		}
	}

	const columns = ` INTO journal (occurred_at, event_type, subject_external_id, subject_handle,
			subject_name, inviter_id, status, note, delivery_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		fmtTime(occurred), string(ev.Type), ev.SubjectExternalID, nullStr(ev.SubjectHandle),
		nullStr(ev.SubjectName), nullInt(ev.InviterID), string(ev.Status), nullStr(note),
		nullInt(ev.DeliveryID),
	}

	if ev.DeliveryID != 0 {
		res, err := r.db.ExecContext(ctx, `INSERT OR IGNORE`+columns, args...)
		if err != nil {
			return 0, false, &domain.StorageError{Op: "append event", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, false, &domain.StorageError{Op: "append event", Err: err}
		}
		if n == 0 {
			// Duplicate delivery: return the row written first.
			var id int64
			err := r.db.QueryRowContext(ctx, `SELECT id FROM journal WHERE delivery_id = ?`, ev.DeliveryID).Scan(&id)
			if err != nil {
				return 0, false, &domain.StorageError{Op: "resolve duplicate delivery", Err: err}
			}
			return id, false, nil
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, &domain.StorageError{Op: "append event", Err: err}
		}
		return id, true, nil
	}

	res, err := r.db.ExecContext(ctx, `INSERT`+columns, args...)
	if err != nil {
		return 0, false, &domain.StorageError{Op: "append event", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, &domain.StorageError{Op: "append event", Err: err}
	}
	return id, true, nil
}

// EventsForPeriod returns journal rows for dates in [start, end], newest first.
func (r *ledgerRepo) EventsForPeriod(ctx context.Context, start, end time.Time) ([]*domain.JournalEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, occurred_at, event_type, subject_external_id, subject_handle,
			subject_name, inviter_id, status, note, delivery_id
		FROM journal
		WHERE date(occurred_at) >= ? AND date(occurred_at) <= ?
		ORDER BY occurred_at DESC
	`, fmtDate(start), fmtDate(end))
	if err != nil {
		return nil, &domain.StorageError{Op: "list events", Err: err}
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

// Close closes the database connection
func (r *ledgerRepo) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.JournalEvent, error) {
	var ev domain.JournalEvent
	var occurred, eventType, status string
	var handle, name, note sql.NullString
	var inviterID, deliveryID sql.NullInt64
	err := row.Scan(&ev.ID, &occurred, &eventType, &ev.SubjectExternalID,
		&handle, &name, &inviterID, &status, &note, &deliveryID)
	if err != nil {
		return nil, &domain.StorageError{Op: "scan event", Err: err}
	}

	ev.OccurredAt, err = parseTime(occurred)
	if err != nil {
		return nil, fmt.Errorf("malformed occurred_at %q: %w", occurred, err)
	}
	ev.Type = domain.EventType(eventType)
	ev.Status = domain.MemberStatus(status)
	ev.SubjectHandle = handle.String
	ev.SubjectName = name.String
	ev.Note = note.String
	ev.InviterID = inviterID.Int64
	ev.DeliveryID = deliveryID.Int64
	return &ev, nil
}
