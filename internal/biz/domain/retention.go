package domain

import "time"

// RetentionResult is the verdict for one (subscription, window) pair.
type RetentionResult string

const (
	Retained    RetentionResult = "retained"
	NotRetained RetentionResult = "not_retained"
)

// RetentionCheck memoizes one verdict. At most one row ever exists per
// (JournalEventID, CheckDate); once written it never changes, so historical
// retention numbers stay stable as new events arrive.
type RetentionCheck struct {
	ID             int64
	JournalEventID int64
	CheckDate      time.Time
	Result         RetentionResult
}

// RetentionCheckRecord is a check joined with its subscription, for export.
type RetentionCheckRecord struct {
	JournalEventID    int64
	CheckDate         time.Time
	Result            RetentionResult
	SubjectExternalID int64
	SubjectHandle     string
	SubscribedAt      time.Time
}

// EvaluationSummary reports one batch run. Failed counts subscriptions that
// could not be evaluated; the batch continues past them.
type EvaluationSummary struct {
	Checked     int
	Retained    int
	NotRetained int
	Failed      int
}

// RetentionStats aggregates verdicts for one cohort (the subscribe events
// exactly WindowDays before the as-of date).
type RetentionStats struct {
	WindowDays         int
	TotalSubscriptions int
	Retained           int
	NotRetained        int
	RetentionRate      float64 // percentage, 0 when the cohort is empty
}
