package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
	"github.com/torrichelli/subledger/internal/biz/usecase"
	"github.com/torrichelli/subledger/internal/data"
)

type fixture struct {
	ingestUC  *usecase.IngestUsecase
	retainUC  *usecase.RetentionUsecase
	inviteUC  *usecase.InviteUsecase
	reportUC  *usecase.ReportUsecase
	reportSvc *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos, err := data.NewRepositories(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to open repositories: %v", err)
	}
	t.Cleanup(func() { repos.Close() })

	retainUC := usecase.NewRetentionUsecase(repos.Retention)
	reportUC := usecase.NewReportUsecase(repos.Stats, repos.Ledger)
	return &fixture{
		ingestUC:  usecase.NewIngestUsecase(repos.Ledger, domain.PolicyDropAttribution),
		retainUC:  retainUC,
		inviteUC:  usecase.NewInviteUsecase(repos.Ledger, repos.Stats),
		reportUC:  reportUC,
		reportSvc: NewReportService(reportUC, retainUC, 3),
	}
}

func (f *fixture) ingest(t *testing.T, upd domain.MemberUpdate) *usecase.IngestResult {
	t.Helper()
	result, err := f.ingestUC.HandleMemberUpdate(context.Background(), upd)
	if err != nil {
		t.Fatalf("Failed to ingest update: %v", err)
	}
	return result
}

func subscribeUpdate(subject int64, handle, token string, at time.Time) domain.MemberUpdate {
	return domain.MemberUpdate{
		ChatKind:          domain.ChatChannel,
		SubjectKind:       domain.SubjectUser,
		OldStatus:         domain.StatusLeft,
		NewStatus:         domain.StatusMember,
		SubjectExternalID: subject,
		SubjectHandle:     handle,
		InviteToken:       token,
		OccurredAt:        at,
	}
}

func unsubscribeUpdate(subject int64, at time.Time) domain.MemberUpdate {
	return domain.MemberUpdate{
		ChatKind:          domain.ChatChannel,
		SubjectKind:       domain.SubjectUser,
		OldStatus:         domain.StatusMember,
		NewStatus:         domain.StatusLeft,
		SubjectExternalID: subject,
		OccurredAt:        at,
	}
}

// Full path from raw notifications through evaluation to report payloads,
// against a real database.
func TestLedgerLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ann, err := f.inviteUC.RegisterInviter(ctx, "Ann", "ann", "newsletter")
	if err != nil {
		t.Fatalf("Failed to register inviter: %v", err)
	}
	if ann.InviteToken == "" {
		t.Fatal("RegisterInviter must mint a token")
	}

	day1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	// Same delivery id twice: the journal must hold exactly one row.
	upd := subscribeUpdate(100, "u1", ann.InviteToken, day1)
	upd.DeliveryID = 5001
	first := f.ingest(t, upd)
	second := f.ingest(t, upd)
	if !first.Created || second.Created {
		t.Errorf("Created flags = %v/%v, want true/false", first.Created, second.Created)
	}
	if first.EventID != second.EventID {
		t.Errorf("Re-delivery returned a new event id: %d vs %d", first.EventID, second.EventID)
	}
	if first.InviterID != ann.ID {
		t.Errorf("InviterID = %d, want %d", first.InviterID, ann.ID)
	}

	// A second, unattributed subscriber the same day.
	f.ingest(t, subscribeUpdate(200, "u2", "", day1.Add(2*time.Hour)))

	// First subscriber leaves three days later.
	f.ingest(t, unsubscribeUpdate(100, day1.AddDate(0, 0, 3)))

	daily, err := f.reportSvc.Daily(ctx, day1)
	if err != nil {
		t.Fatalf("Failed to build daily report: %v", err)
	}
	if daily.Stats.Subscribes != 2 {
		t.Errorf("Subscribes = %d, want 2", daily.Stats.Subscribes)
	}
	if daily.Stats.UniqueSubscribers != 2 {
		t.Errorf("UniqueSubscribers = %d, want 2", daily.Stats.UniqueSubscribers)
	}
	if daily.TotalActive != 1 {
		t.Errorf("TotalActive = %d, want 1 (first subscriber left)", daily.TotalActive)
	}
	if len(daily.TopInviters) != 1 || daily.TopInviters[0].Invited != 1 {
		t.Errorf("TopInviters = %+v, want one entry with Invited=1", daily.TopInviters)
	}

	// Seven days on, the cohort of day1 gets its verdicts.
	asOf := day1.AddDate(0, 0, 7)
	summary, err := f.retainUC.Evaluate(ctx, 7, asOf)
	if err != nil {
		t.Fatalf("Failed to evaluate retention: %v", err)
	}
	if summary.Checked != 2 || summary.Retained != 1 || summary.NotRetained != 1 {
		t.Errorf("Summary = %+v, want Checked=2 Retained=1 NotRetained=1", summary)
	}

	// Memoized: a re-run decides nothing new.
	again, err := f.retainUC.Evaluate(ctx, 7, asOf)
	if err != nil {
		t.Fatalf("Failed to re-run evaluation: %v", err)
	}
	if again.Checked != 0 {
		t.Errorf("Checked = %d on re-run, want 0", again.Checked)
	}

	// The 14-day window evaluates the same cohort independently.
	wider, err := f.retainUC.Evaluate(ctx, 14, day1.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("Failed to evaluate 14-day retention: %v", err)
	}
	if wider.Checked != 2 || wider.Retained != 1 || wider.NotRetained != 1 {
		t.Errorf("14-day summary = %+v, want Checked=2 Retained=1 NotRetained=1", wider)
	}

	checks, err := f.retainUC.ChecksExport(ctx)
	if err != nil {
		t.Fatalf("Failed to export retention checks: %v", err)
	}
	if len(checks) != 4 {
		t.Errorf("len(checks) = %d, want 4 (two subscriptions, two windows)", len(checks))
	}

	events, err := f.reportUC.EventsForDate(ctx, day1)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len(events) = %d, want the two journal rows of the day", len(events))
	}

	retention, err := f.reportSvc.Retention(ctx, 7, asOf, 1)
	if err != nil {
		t.Fatalf("Failed to build retention report: %v", err)
	}
	if retention.Stats.TotalSubscriptions != 2 {
		t.Errorf("TotalSubscriptions = %d, want 2", retention.Stats.TotalSubscriptions)
	}
	if retention.Stats.RetentionRate != 50.0 {
		t.Errorf("RetentionRate = %v, want 50", retention.Stats.RetentionRate)
	}
	if len(retention.Trend) != 1 {
		t.Errorf("len(Trend) = %d, want 1", len(retention.Trend))
	}
}

func TestMonthlyReportWeeklyBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	monthStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.ingest(t, subscribeUpdate(100, "u1", "", monthStart.Add(9*time.Hour)))
	f.ingest(t, subscribeUpdate(200, "u2", "", monthStart.AddDate(0, 0, 10)))

	monthly, err := f.reportSvc.Monthly(ctx, monthStart)
	if err != nil {
		t.Fatalf("Failed to build monthly report: %v", err)
	}
	if monthly.Stats.Subscribes != 2 {
		t.Errorf("Subscribes = %d, want 2", monthly.Stats.Subscribes)
	}
	// January is 31 days, so five week slices starting Jan 1.
	if len(monthly.WeeklyBreakdown) != 5 {
		t.Fatalf("len(WeeklyBreakdown) = %d, want 5", len(monthly.WeeklyBreakdown))
	}
	if monthly.WeeklyBreakdown[0].Stats.Subscribes != 1 {
		t.Errorf("Week 1 Subscribes = %d, want 1", monthly.WeeklyBreakdown[0].Stats.Subscribes)
	}
	if monthly.WeeklyBreakdown[1].Stats.Subscribes != 1 {
		t.Errorf("Week 2 Subscribes = %d, want 1", monthly.WeeklyBreakdown[1].Stats.Subscribes)
	}
}

func TestOverviewIncludesInviterRollup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ann, err := f.inviteUC.RegisterInviter(ctx, "Ann", "ann", "")
	if err != nil {
		t.Fatalf("Failed to register inviter: %v", err)
	}

	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	f.ingest(t, subscribeUpdate(100, "u1", ann.InviteToken, now.AddDate(0, 0, -5)))
	f.ingest(t, subscribeUpdate(200, "u2", ann.InviteToken, now.AddDate(0, 0, -4)))
	f.ingest(t, unsubscribeUpdate(200, now.AddDate(0, 0, -2)))

	overview, err := f.reportSvc.Overview(ctx, now, 30)
	if err != nil {
		t.Fatalf("Failed to build overview: %v", err)
	}
	if overview.Stats.Subscribes != 2 || overview.Stats.Unsubscribes != 1 {
		t.Errorf("Stats = %+v, want Subscribes=2 Unsubscribes=1", overview.Stats)
	}
	if overview.TotalActive != 1 {
		t.Errorf("TotalActive = %d, want 1", overview.TotalActive)
	}
	if len(overview.Inviters) != 1 {
		t.Fatalf("len(Inviters) = %d, want 1", len(overview.Inviters))
	}
	inv := overview.Inviters[0]
	if inv.TotalInvited != 2 || inv.CurrentlySubscribed != 1 {
		t.Errorf("Inviter rollup = %+v, want TotalInvited=2 CurrentlySubscribed=1", inv)
	}
	if inv.RetentionPercentage != 50.0 {
		t.Errorf("RetentionPercentage = %v, want 50", inv.RetentionPercentage)
	}
}
