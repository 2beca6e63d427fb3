package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/torrichelli/subledger/internal/biz/usecase"
	"github.com/torrichelli/subledger/internal/conf"
	"github.com/torrichelli/subledger/internal/data"
	"github.com/torrichelli/subledger/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	fmt.Printf("[Subledger] Ledger DB: %s\n", cfg.DBPath)

	// Initialize usecase layer
	retentionUC := usecase.NewRetentionUsecase(repos.Retention)
	reportUC := usecase.NewReportUsecase(repos.Stats, repos.Ledger)
	inviteUC := usecase.NewInviteUsecase(repos.Ledger, repos.Stats)

	// Initialize service layer
	reportSvc := service.NewReportService(reportUC, retentionUC, cfg.TopInvitersLimit)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	date := time.Now().UTC()
	if len(os.Args) > 2 {
		if parsed, err := time.Parse("2006-01-02", os.Args[len(os.Args)-1]); err == nil {
			date = parsed
		}
	}

	switch os.Args[1] {
	case "evaluate":
		for _, window := range cfg.RetentionWindows {
			summary, err := retentionUC.Evaluate(ctx, window, date)
			if err != nil {
				log.Fatalf("Failed to evaluate %d-day retention: %v", window, err)
			}
			fmt.Printf("[Subledger] %d-day window: checked=%d retained=%d not_retained=%d failed=%d\n",
				window, summary.Checked, summary.Retained, summary.NotRetained, summary.Failed)
		}

	case "daily":
		report, err := reportSvc.Daily(ctx, date)
		if err != nil {
			log.Fatalf("Failed to build daily report: %v", err)
		}
		fmt.Printf("[Subledger] %s: +%d -%d (net %+d), active=%d\n",
			report.Date.Format("2006-01-02"), report.Stats.Subscribes,
			report.Stats.Unsubscribes, report.Stats.NetGrowth, report.TotalActive)
		for i, top := range report.TopInviters {
			fmt.Printf("  %d. %s: invited=%d retained=%d\n", i+1, top.InviterLabel, top.Invited, top.Retained)
		}

	case "weekly":
		report, err := reportSvc.Weekly(ctx, date)
		if err != nil {
			log.Fatalf("Failed to build weekly report: %v", err)
		}
		fmt.Printf("[Subledger] Week of %s: +%d -%d (net %+d), active=%d\n",
			report.WeekStart.Format("2006-01-02"), report.Stats.Subscribes,
			report.Stats.Unsubscribes, report.Stats.NetGrowth, report.TotalActive)

	case "monthly":
		report, err := reportSvc.Monthly(ctx, date)
		if err != nil {
			log.Fatalf("Failed to build monthly report: %v", err)
		}
		fmt.Printf("[Subledger] Month of %s: +%d -%d (net %+d), active=%d\n",
			report.MonthStart.Format("2006-01-02"), report.Stats.Subscribes,
			report.Stats.Unsubscribes, report.Stats.NetGrowth, report.TotalActive)
		for _, week := range report.WeeklyBreakdown {
			fmt.Printf("  week %s: +%d -%d\n", week.WeekStart.Format("2006-01-02"),
				week.Stats.Subscribes, week.Stats.Unsubscribes)
		}

	case "retention":
		for _, window := range cfg.RetentionWindows {
			report, err := reportSvc.Retention(ctx, window, date, 0)
			if err != nil {
				log.Fatalf("Failed to build retention report: %v", err)
			}
			fmt.Printf("[Subledger] %d-day retention on %s: %d/%d retained (%.1f%%)\n",
				window, date.Format("2006-01-02"), report.Stats.Retained,
				report.Stats.TotalSubscriptions, report.Stats.RetentionRate)
		}

	case "export":
		entries, err := reportUC.FullExport(ctx)
		if err != nil {
			log.Fatalf("Failed to export journal: %v", err)
		}
		for _, e := range entries {
			inviter := e.InviterLabel
			if inviter == "" {
				inviter = "-"
			}
			fmt.Printf("%d\t%s\t%s\t%d\t%s\t%s\t%s\n", e.EventID,
				e.OccurredAt.Format(time.RFC3339), e.Type, e.SubjectExternalID,
				e.SubjectHandle, inviter, e.Note)
		}

	case "checks":
		records, err := retentionUC.ChecksExport(ctx)
		if err != nil {
			log.Fatalf("Failed to export retention checks: %v", err)
		}
		for _, rec := range records {
			fmt.Printf("%s\t%s\t%d\t%s\t%s\n", rec.CheckDate.Format("2006-01-02"),
				rec.Result, rec.SubjectExternalID, rec.SubjectHandle,
				rec.SubscribedAt.Format(time.RFC3339))
		}

	case "events":
		events, err := reportUC.EventsForDate(ctx, date)
		if err != nil {
			log.Fatalf("Failed to list events: %v", err)
		}
		for _, ev := range events {
			fmt.Printf("%d\t%s\t%s\t%d\t%s\n", ev.ID,
				ev.OccurredAt.Format(time.RFC3339), ev.Type, ev.SubjectExternalID, ev.SubjectHandle)
		}

	case "inviters":
		inviters, err := inviteUC.ListInviters(ctx)
		if err != nil {
			log.Fatalf("Failed to list inviters: %v", err)
		}
		for _, inv := range inviters {
			stats, err := inviteUC.InviteStats(ctx, inv.ID)
			if err != nil {
				log.Fatalf("Failed to get invite stats: %v", err)
			}
			fmt.Printf("%d\t%s\ttoken=%s\tinvited=%d\tactive=%d\n",
				inv.ID, inv.DisplayLabel(), inv.InviteToken, stats.TotalInvited, stats.CurrentlyActive)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: subledger <evaluate|daily|weekly|monthly|retention|export|checks|events|inviters> [YYYY-MM-DD]")
}
