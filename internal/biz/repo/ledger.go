package repo

import (
	"context"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
)

// LedgerRepo is the write side of the membership ledger (SQLite). The only
// mutation discipline is append or idempotent upsert; journal rows are never
// updated or deleted.
type LedgerRepo interface {
	// UpsertSubject creates the subject on first sighting and returns its id.
	// On conflict it backfills only missing handle/name, never clearing a
	// present value. Empty strings mean "unknown".
	UpsertSubject(ctx context.Context, externalID int64, handle, name string) (int64, error)

	// UpsertInviter inserts or updates an inviter, keyed by handle or name.
	// The id is preserved across updates.
	UpsertInviter(ctx context.Context, inviter *domain.Inviter) (int64, error)

	// FindInviterByToken resolves an invite token to an inviter id, 0 when
	// no inviter carries the token.
	FindInviterByToken(ctx context.Context, token string) (int64, error)

	// ListInviters returns all registered inviters.
	ListInviters(ctx context.Context) ([]*domain.Inviter, error)

	// AppendEvent appends a journal row and returns its id. When the event
	// carries a delivery id already present in the journal, the existing
	// row's id is returned with created=false and nothing is written.
	// A subscribe attributed to a different inviter than an earlier
	// subscribe of the same subject gets the repeat marker appended to its
	// note.
	AppendEvent(ctx context.Context, ev *domain.JournalEvent) (id int64, created bool, err error)

	// EventsForPeriod returns journal rows whose date falls in [start, end],
	// newest first.
	EventsForPeriod(ctx context.Context, start, end time.Time) ([]*domain.JournalEvent, error)

	// Close closes the underlying store.
	Close() error
}
