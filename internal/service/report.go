package service

import (
	"context"
	"fmt"
	"time"

	"github.com/torrichelli/subledger/internal/biz/domain"
	"github.com/torrichelli/subledger/internal/biz/usecase"
)

// ReportService assembles the payloads that reporting collaborators render
// and deliver. Pure composition over the usecases; no rendering, no
// scheduling, no transport.
type ReportService struct {
	reportUC    *usecase.ReportUsecase
	retentionUC *usecase.RetentionUsecase

	topInvitersLimit int
}

// NewReportService creates a new report service
func NewReportService(reportUC *usecase.ReportUsecase, retentionUC *usecase.RetentionUsecase, topInvitersLimit int) *ReportService {
	if topInvitersLimit <= 0 {
		topInvitersLimit = 3
	}
	return &ReportService{
		reportUC:         reportUC,
		retentionUC:      retentionUC,
		topInvitersLimit: topInvitersLimit,
	}
}

// DailyReport is the payload for one day's report.
type DailyReport struct {
	Date        time.Time
	Stats       *domain.PeriodStats
	TotalActive int
	TopInviters []*domain.TopInviter
}

// WeeklyReport is the payload for one week's report.
type WeeklyReport struct {
	WeekStart   time.Time
	Stats       *domain.PeriodStats
	TotalActive int
}

// WeekSlice is one week inside a monthly report.
type WeekSlice struct {
	WeekStart time.Time
	Stats     *domain.PeriodStats
}

// MonthlyReport is the payload for one month's report.
type MonthlyReport struct {
	MonthStart      time.Time
	Stats           *domain.PeriodStats
	TotalActive     int
	WeeklyBreakdown []WeekSlice
}

// RetentionTrendPoint is one day of a retention trend series.
type RetentionTrendPoint struct {
	Date  time.Time
	Stats *domain.RetentionStats
}

// RetentionReport is the payload for a retention window report.
type RetentionReport struct {
	WindowDays int
	Date       time.Time
	Stats      *domain.RetentionStats
	Trend      []RetentionTrendPoint
}

// Summary is an overview of a lookback window.
type Summary struct {
	From        time.Time
	To          time.Time
	Stats       *domain.PeriodStats
	TotalActive int
	Inviters    []*domain.InviterStats
}

// Daily assembles the report payload for one date.
func (s *ReportService) Daily(ctx context.Context, date time.Time) (*DailyReport, error) {
	stats, err := s.reportUC.DailyStats(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	active, err := s.reportUC.ActiveCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("active count: %w", err)
	}
	top, err := s.reportUC.TopInviters(ctx, date, s.topInvitersLimit)
	if err != nil {
		return nil, fmt.Errorf("top inviters: %w", err)
	}
	return &DailyReport{Date: date, Stats: stats, TotalActive: active, TopInviters: top}, nil
}

// Weekly assembles the report payload for the week starting at weekStart.
func (s *ReportService) Weekly(ctx context.Context, weekStart time.Time) (*WeeklyReport, error) {
	stats, err := s.reportUC.WeeklyStats(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("weekly stats: %w", err)
	}
	active, err := s.reportUC.ActiveCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("active count: %w", err)
	}
	return &WeeklyReport{WeekStart: weekStart, Stats: stats, TotalActive: active}, nil
}

// Monthly assembles the report payload for the month starting at monthStart,
// including a per-week breakdown.
func (s *ReportService) Monthly(ctx context.Context, monthStart time.Time) (*MonthlyReport, error) {
	stats, err := s.reportUC.MonthlyStats(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	active, err := s.reportUC.ActiveCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("active count: %w", err)
	}

	monthEnd := monthStart.AddDate(0, 1, 0)
	var breakdown []WeekSlice
	for ws := monthStart; ws.Before(monthEnd); ws = ws.AddDate(0, 0, 7) {
		weekStats, err := s.reportUC.WeeklyStats(ctx, ws)
		if err != nil {
			return nil, fmt.Errorf("weekly breakdown: %w", err)
		}
		breakdown = append(breakdown, WeekSlice{WeekStart: ws, Stats: weekStats})
	}

	return &MonthlyReport{
		MonthStart:      monthStart,
		Stats:           stats,
		TotalActive:     active,
		WeeklyBreakdown: breakdown,
	}, nil
}

// Retention assembles a retention report: the cohort for (windowDays, date)
// plus a trend over the preceding trendDays.
func (s *ReportService) Retention(ctx context.Context, windowDays int, date time.Time, trendDays int) (*RetentionReport, error) {
	stats, err := s.retentionUC.Stats(ctx, windowDays, date)
	if err != nil {
		return nil, fmt.Errorf("retention stats: %w", err)
	}

	var trend []RetentionTrendPoint
	for i := trendDays - 1; i >= 0; i-- {
		day := date.AddDate(0, 0, -i)
		point, err := s.retentionUC.Stats(ctx, windowDays, day)
		if err != nil {
			return nil, fmt.Errorf("retention trend for %s: %w", day.Format("2006-01-02"), err)
		}
		trend = append(trend, RetentionTrendPoint{Date: day, Stats: point})
	}

	return &RetentionReport{WindowDays: windowDays, Date: date, Stats: stats, Trend: trend}, nil
}

// Overview assembles a summary of the last daysBack days ending at now.
func (s *ReportService) Overview(ctx context.Context, now time.Time, daysBack int) (*Summary, error) {
	if daysBack <= 0 {
		daysBack = 30
	}
	from := now.AddDate(0, 0, -daysBack)

	stats, err := s.reportUC.PeriodStats(ctx, from, now.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("summary stats: %w", err)
	}
	active, err := s.reportUC.ActiveCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("active count: %w", err)
	}
	inviters, err := s.reportUC.InviterStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("inviter stats: %w", err)
	}
	return &Summary{From: from, To: now, Stats: stats, TotalActive: active, Inviters: inviters}, nil
}
