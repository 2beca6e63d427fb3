package domain

import "time"

// PeriodStats counts journal activity inside a date range.
type PeriodStats struct {
	Subscribes        int
	Unsubscribes      int
	UniqueSubscribers int
	RepeatSubscribers int
	NetGrowth         int // Subscribes - Unsubscribes
}

// InviterStats is the per-inviter rollup. CurrentlySubscribed is derived
// from the event history (no later unsubscribe), never from a stored flag.
type InviterStats struct {
	InviterID           int64
	InviterLabel        string
	TotalInvited        int
	CurrentlySubscribed int
	Unsubscribed        int
	RetentionPercentage float64 // 0 when TotalInvited is 0
}

// TopInviter is one leaderboard row for a given day.
type TopInviter struct {
	InviterLabel string
	Invited      int
	Retained     int
}

// InviteStats summarizes one inviter's recruiting record.
type InviteStats struct {
	TotalInvited    int
	CurrentlyActive int
}

// HistoryEntry is a journal row joined with its inviter label, for export
// and per-subject history.
type HistoryEntry struct {
	EventID           int64
	OccurredAt        time.Time
	Type              EventType
	SubjectExternalID int64
	SubjectHandle     string
	SubjectName       string
	InviterLabel      string // "" when unattributed
	Status            MemberStatus
	Note              string
}

// SubjectProfile is everything known about one subject, derived on demand.
type SubjectProfile struct {
	ExternalID      int64
	Handle          string
	Name            string
	Subscribes      int
	Unsubscribes    int
	FirstSubscribed time.Time // zero when never subscribed
	LastActivity    time.Time
	Active          bool
	History         []HistoryEntry
}
