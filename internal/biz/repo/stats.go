package repo

import (
	"context"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
)

// StatsRepo is the read side: every answer is derived from the journal
// (plus retention checks), never from a cached status column. Empty data
// yields zero-valued results, not errors.
type StatsRepo interface {
	// PeriodStats counts activity for dates in [start, end).
	PeriodStats(ctx context.Context, start, end time.Time) (*domain.PeriodStats, error)

	// InviterStats returns per-inviter rollups for every registered
	// inviter, ordered by total invited. An inviter with no attributed
	// subscribes reports zeros, including a 0 retention percentage.
	InviterStats(ctx context.Context) ([]*domain.InviterStats, error)

	// ActiveSubscriberCount counts distinct subjects with a subscribe not
	// followed by a later unsubscribe.
	ActiveSubscriberCount(ctx context.Context) (int, error)

	// TopInvitersForDate ranks inviters by subscribes attributed to them on
	// one day, with per-row retained counts.
	TopInvitersForDate(ctx context.Context, date time.Time, limit int) ([]*domain.TopInviter, error)

	// SubjectProfile looks a subject up by external id or handle and
	// derives its profile. Nil when the subject has no journal rows.
	SubjectProfile(ctx context.Context, query string) (*domain.SubjectProfile, error)

	// JournalExport returns the full history joined with inviter labels,
	// newest first.
	JournalExport(ctx context.Context) ([]*domain.HistoryEntry, error)

	// InviterInviteStats summarizes one inviter's recruiting record.
	InviterInviteStats(ctx context.Context, inviterID int64) (*domain.InviteStats, error)
}
