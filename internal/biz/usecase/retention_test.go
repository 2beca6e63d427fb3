package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
)

// Mock implementations

type insertedCheck struct {
	journalEventID int64
	result         domain.RetentionResult
}

type mockRetentionRepo struct {
	candidates   []*domain.JournalEvent
	unsubscribed map[int64]bool
	checked      map[string]bool
	inserted     []insertedCheck

	retainedCount    int
	notRetainedCount int

	probeErrFor int64
	insertErr   error
}

func newMockRetentionRepo() *mockRetentionRepo {
	return &mockRetentionRepo{
		unsubscribed: make(map[int64]bool),
		checked:      make(map[string]bool),
	}
}

// Verdicts are memoized per (journal event, check date) pair, matching the
// store's unique index.
func checkKey(journalEventID int64, checkDate time.Time) string {
	return fmt.Sprintf("%d@%s", journalEventID, checkDate.Format("2006-01-02"))
}

func (m *mockRetentionRepo) CandidatesForCheck(ctx context.Context, windowDays int, asOf time.Time) ([]*domain.JournalEvent, error) {
	var out []*domain.JournalEvent
	for _, c := range m.candidates {
		if !m.checked[checkKey(c.ID, asOf)] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRetentionRepo) HasLaterUnsubscribe(ctx context.Context, subjectExternalID int64, after time.Time) (bool, error) {
	if m.probeErrFor != 0 && m.probeErrFor == subjectExternalID {
		return false, errors.New("probe failed")
	}
	return m.unsubscribed[subjectExternalID], nil
}

func (m *mockRetentionRepo) InsertCheck(ctx context.Context, journalEventID int64, checkDate time.Time, result domain.RetentionResult) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	key := checkKey(journalEventID, checkDate)
	if m.checked[key] {
		return nil
	}
	m.checked[key] = true
	m.inserted = append(m.inserted, insertedCheck{journalEventID: journalEventID, result: result})
	return nil
}

func (m *mockRetentionRepo) CheckCounts(ctx context.Context, windowDays int, asOf time.Time) (int, int, error) {
	return m.retainedCount, m.notRetainedCount, nil
}

func (m *mockRetentionRepo) ChecksJoined(ctx context.Context) ([]*domain.RetentionCheckRecord, error) {
	return nil, nil
}

// Tests

func candidate(id, subject int64) *domain.JournalEvent {
	return &domain.JournalEvent{
		ID:                id,
		SubjectExternalID: subject,
		Type:              domain.EventSubscribe,
		OccurredAt:        time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateSplitsVerdicts(t *testing.T) {
	retention := newMockRetentionRepo()
	retention.candidates = []*domain.JournalEvent{
		candidate(1, 100),
		candidate(2, 200),
		candidate(3, 300),
	}
	retention.unsubscribed[200] = true

	uc := NewRetentionUsecase(retention)
	asOf := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	summary, err := uc.Evaluate(context.Background(), 7, asOf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.Checked != 3 {
		t.Errorf("Checked = %d, want 3", summary.Checked)
	}
	if summary.Retained != 2 {
		t.Errorf("Retained = %d, want 2", summary.Retained)
	}
	if summary.NotRetained != 1 {
		t.Errorf("NotRetained = %d, want 1", summary.NotRetained)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0", summary.Failed)
	}

	if len(retention.inserted) != 3 {
		t.Fatalf("len(inserted) = %d, want 3", len(retention.inserted))
	}
	for _, ins := range retention.inserted {
		want := domain.Retained
		if ins.journalEventID == 2 {
			want = domain.NotRetained
		}
		if ins.result != want {
			t.Errorf("Event %d: result = %s, want %s", ins.journalEventID, ins.result, want)
		}
	}
}

func TestEvaluateContinuesPastFailedCandidate(t *testing.T) {
	retention := newMockRetentionRepo()
	retention.candidates = []*domain.JournalEvent{
		candidate(1, 100),
		candidate(2, 200),
		candidate(3, 300),
	}
	retention.probeErrFor = 200

	uc := NewRetentionUsecase(retention)
	asOf := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	summary, err := uc.Evaluate(context.Background(), 7, asOf)
	if err != nil {
		t.Fatalf("Batch must not abort on one failure: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if summary.Checked != 2 {
		t.Errorf("Checked = %d, want 2", summary.Checked)
	}
	if retention.checked[checkKey(2, asOf)] {
		t.Error("Failed candidate must not get a verdict")
	}
	if !retention.checked[checkKey(1, asOf)] || !retention.checked[checkKey(3, asOf)] {
		t.Error("Other candidates must still be evaluated")
	}
}

func TestEvaluateRerunIsNoOp(t *testing.T) {
	retention := newMockRetentionRepo()
	retention.candidates = []*domain.JournalEvent{candidate(1, 100)}

	uc := NewRetentionUsecase(retention)
	asOf := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	if _, err := uc.Evaluate(context.Background(), 7, asOf); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	summary, err := uc.Evaluate(context.Background(), 7, asOf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.Checked != 0 {
		t.Errorf("Checked = %d on re-run, want 0", summary.Checked)
	}
	if len(retention.inserted) != 1 {
		t.Errorf("len(inserted) = %d, want 1", len(retention.inserted))
	}
}

func TestEvaluateEachWindowGetsItsOwnVerdict(t *testing.T) {
	retention := newMockRetentionRepo()
	retention.candidates = []*domain.JournalEvent{candidate(1, 100)}

	uc := NewRetentionUsecase(retention)
	subscribed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	narrow, err := uc.Evaluate(context.Background(), 7, subscribed.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	wide, err := uc.Evaluate(context.Background(), 14, subscribed.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if narrow.Checked != 1 || wide.Checked != 1 {
		t.Errorf("Checked = %d/%d, the 7-day verdict must not preempt the 14-day one", narrow.Checked, wide.Checked)
	}
	if len(retention.inserted) != 2 {
		t.Errorf("len(inserted) = %d, want one verdict per window", len(retention.inserted))
	}
}

func TestEvaluateRejectsNonPositiveWindow(t *testing.T) {
	uc := NewRetentionUsecase(newMockRetentionRepo())
	_, err := uc.Evaluate(context.Background(), 0, time.Now())
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestStatsCombinesStoredAndLiveVerdicts(t *testing.T) {
	retention := newMockRetentionRepo()
	retention.retainedCount = 2
	retention.notRetainedCount = 1
	retention.candidates = []*domain.JournalEvent{candidate(9, 900)}
	retention.unsubscribed[900] = true

	uc := NewRetentionUsecase(retention)
	asOf := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	stats, err := uc.Stats(context.Background(), 7, asOf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.TotalSubscriptions != 4 {
		t.Errorf("TotalSubscriptions = %d, want 4", stats.TotalSubscriptions)
	}
	if stats.Retained != 2 || stats.NotRetained != 2 {
		t.Errorf("Retained/NotRetained = %d/%d, want 2/2", stats.Retained, stats.NotRetained)
	}
	if stats.RetentionRate != 50.0 {
		t.Errorf("RetentionRate = %v, want 50", stats.RetentionRate)
	}
	if len(retention.inserted) != 0 {
		t.Error("Stats must not write verdicts")
	}
}

func TestStatsEmptyCohort(t *testing.T) {
	uc := NewRetentionUsecase(newMockRetentionRepo())
	stats, err := uc.Stats(context.Background(), 7, time.Now())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.TotalSubscriptions != 0 || stats.RetentionRate != 0 {
		t.Errorf("Empty cohort: got %+v, want zeros", stats)
	}
}
