package usecase

import (
	"context"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
	"github.com/torrichelli/subledger/internal/biz/repo"
)

// ReportUsecase answers the read queries. Everything is computed on demand
// from the journal; empty data yields zero-valued results.
type ReportUsecase struct {
	stats  repo.StatsRepo
	ledger repo.LedgerRepo
}

// NewReportUsecase creates a new report usecase
func NewReportUsecase(stats repo.StatsRepo, ledger repo.LedgerRepo) *ReportUsecase {
	return &ReportUsecase{stats: stats, ledger: ledger}
}

// PeriodStats counts activity for dates in [start, end).
func (uc *ReportUsecase) PeriodStats(ctx context.Context, start, end time.Time) (*domain.PeriodStats, error) {
	return uc.stats.PeriodStats(ctx, start, end)
}

// DailyStats counts activity on one calendar day.
func (uc *ReportUsecase) DailyStats(ctx context.Context, date time.Time) (*domain.PeriodStats, error) {
	return uc.stats.PeriodStats(ctx, date, date.AddDate(0, 0, 1))
}

// WeeklyStats counts activity in the seven days starting at weekStart.
func (uc *ReportUsecase) WeeklyStats(ctx context.Context, weekStart time.Time) (*domain.PeriodStats, error) {
	return uc.stats.PeriodStats(ctx, weekStart, weekStart.AddDate(0, 0, 7))
}

// MonthlyStats counts activity in the calendar month starting at monthStart.
func (uc *ReportUsecase) MonthlyStats(ctx context.Context, monthStart time.Time) (*domain.PeriodStats, error) {
	return uc.stats.PeriodStats(ctx, monthStart, monthStart.AddDate(0, 1, 0))
}

// InviterStats returns per-inviter totals and retention percentages.
func (uc *ReportUsecase) InviterStats(ctx context.Context) ([]*domain.InviterStats, error) {
	return uc.stats.InviterStats(ctx)
}

// ActiveCount returns the number of currently active subscribers.
func (uc *ReportUsecase) ActiveCount(ctx context.Context) (int, error) {
	return uc.stats.ActiveSubscriberCount(ctx)
}

// TopInviters ranks inviters by subscribes attributed to them on one day.
func (uc *ReportUsecase) TopInviters(ctx context.Context, date time.Time, limit int) ([]*domain.TopInviter, error) {
	if limit <= 0 {
		limit = 3
	}
	return uc.stats.TopInvitersForDate(ctx, date, limit)
}

// SubjectProfile looks up a subject by external id or handle. Nil when the
// subject has never appeared in the journal.
func (uc *ReportUsecase) SubjectProfile(ctx context.Context, query string) (*domain.SubjectProfile, error) {
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Message: "required"}
	}
	return uc.stats.SubjectProfile(ctx, query)
}

// FullExport returns the whole journal joined with inviter labels.
func (uc *ReportUsecase) FullExport(ctx context.Context) ([]*domain.HistoryEntry, error) {
	return uc.stats.JournalExport(ctx)
}

// EventsForDate returns the raw journal rows for one calendar day, newest
// first.
func (uc *ReportUsecase) EventsForDate(ctx context.Context, date time.Time) ([]*domain.JournalEvent, error) {
	return uc.ledger.EventsForPeriod(ctx, date, date)
}
