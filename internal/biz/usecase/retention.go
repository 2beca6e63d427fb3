package usecase

import (
	"context"
	"log"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
	"github.com/torrichelli/subledger/internal/biz/repo"
)

// RetentionUsecase evaluates retention cohorts. Each (subscription, window)
// pair is decided exactly once; the verdict is memoized so historical
// numbers never move as new events arrive.
type RetentionUsecase struct {
	retention repo.RetentionRepo
}

// NewRetentionUsecase creates a new retention usecase
func NewRetentionUsecase(retention repo.RetentionRepo) *RetentionUsecase {
	return &RetentionUsecase{retention: retention}
}

// Evaluate runs one batch: every subscribe event dated exactly windowDays
// before asOf without a verdict gets one. A failed candidate is logged and
// counted, the batch continues. Re-runs and restarts are no-ops for rows
// already decided.
func (uc *RetentionUsecase) Evaluate(ctx context.Context, windowDays int, asOf time.Time) (domain.EvaluationSummary, error) {
	var summary domain.EvaluationSummary
	if windowDays <= 0 {
		return summary, &domain.ValidationError{Field: "window_days", Message: "must be positive"}
	}

	candidates, err := uc.retention.CandidatesForCheck(ctx, windowDays, asOf)
	if err != nil {
		return summary, err
	}

	for _, c := range candidates {
		gone, err := uc.retention.HasLaterUnsubscribe(ctx, c.SubjectExternalID, c.OccurredAt)
		if err != nil {
			log.Printf("[Retention] Failed to evaluate event %d: %v", c.ID, err)
			summary.Failed++
			continue
		}

		result := domain.Retained
		if gone {
			result = domain.NotRetained
		}

		if err := uc.retention.InsertCheck(ctx, c.ID, asOf, result); err != nil {
			log.Printf("[Retention] Failed to record check for event %d: %v", c.ID, err)
			summary.Failed++
			continue
		}

		summary.Checked++
		if result == domain.Retained {
			summary.Retained++
		} else {
			summary.NotRetained++
		}
	}

	return summary, nil
}

// Stats reports the cohort verdicts for a window and as-of date: stored
// checks first, plus a live evaluation of any candidate not yet decided,
// so the numbers are complete even before the day's batch has run.
func (uc *RetentionUsecase) Stats(ctx context.Context, windowDays int, asOf time.Time) (*domain.RetentionStats, error) {
	if windowDays <= 0 {
		return nil, &domain.ValidationError{Field: "window_days", Message: "must be positive"}
	}

	retained, notRetained, err := uc.retention.CheckCounts(ctx, windowDays, asOf)
	if err != nil {
		return nil, err
	}

	candidates, err := uc.retention.CandidatesForCheck(ctx, windowDays, asOf)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		gone, err := uc.retention.HasLaterUnsubscribe(ctx, c.SubjectExternalID, c.OccurredAt)
		if err != nil {
			log.Printf("[Retention] Failed to probe event %d: %v", c.ID, err)
			continue
		}
		if gone {
			notRetained++
		} else {
			retained++
		}
	}

	stats := &domain.RetentionStats{
		WindowDays:         windowDays,
		TotalSubscriptions: retained + notRetained,
		Retained:           retained,
		NotRetained:        notRetained,
	}
	if stats.TotalSubscriptions > 0 {
		stats.RetentionRate = float64(stats.Retained) * 100.0 / float64(stats.TotalSubscriptions)
	}
	return stats, nil
}

// ChecksExport returns every stored verdict joined with its subscription.
func (uc *RetentionUsecase) ChecksExport(ctx context.Context) ([]*domain.RetentionCheckRecord, error) {
	return uc.retention.ChecksJoined(ctx)
}
