package domain

import "time"

// ChatKind is the category of chat a membership transition happened in.
type ChatKind string

const (
	ChatChannel    ChatKind = "channel"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatPrivate    ChatKind = "private"
)

// Valid reports whether the chat kind is a known value.
func (k ChatKind) Valid() bool {
	switch k {
	case ChatChannel, ChatGroup, ChatSupergroup, ChatPrivate:
		return true
	}
	return false
}

// MemberStatus is a membership status as reported by the transport.
type MemberStatus string

const (
	StatusLeft          MemberStatus = "left"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusAdministrator MemberStatus = "administrator"
	StatusBanned        MemberStatus = "banned"
)

// Valid reports whether the status is a known value.
func (s MemberStatus) Valid() bool {
	switch s {
	case StatusLeft, StatusMember, StatusRestricted, StatusAdministrator, StatusBanned:
		return true
	}
	return false
}

// SubjectKind distinguishes transitions of ordinary users from transitions
// of the tracked bot itself.
type SubjectKind string

const (
	SubjectUser SubjectKind = "user"
	SubjectBot  SubjectKind = "bot"
)

// Valid reports whether the subject kind is a known value.
func (k SubjectKind) Valid() bool {
	return k == SubjectUser || k == SubjectBot
}

// EventType is the canonical classification of a membership transition.
type EventType string

const (
	EventSubscribe       EventType = "subscribe"
	EventUnsubscribe     EventType = "unsubscribe"
	EventChannelBanned   EventType = "channel_banned"
	EventChannelUnbanned EventType = "channel_unbanned"

	EventGroupJoin     EventType = "group_join"
	EventGroupLeave    EventType = "group_leave"
	EventGroupBanned   EventType = "group_banned"
	EventGroupUnbanned EventType = "group_unbanned"
	EventGroupPromoted EventType = "group_promoted"
	EventGroupDemoted  EventType = "group_demoted"

	EventPrivateUnblocked EventType = "private_unblocked"
	EventPrivateBlocked   EventType = "private_blocked"

	EventBotAdded    EventType = "bot_added"
	EventBotRemoved  EventType = "bot_removed"
	EventBotBanned   EventType = "bot_banned"
	EventBotUnbanned EventType = "bot_unbanned"
	EventBotPromoted EventType = "bot_promoted"
	EventBotDemoted  EventType = "bot_demoted"

	// EventManualAdd records a subject entered by an operator rather than
	// observed through a transition.
	EventManualAdd EventType = "manual_add"
)

// NoteRepeat marks a subscribe attributed to a different inviter than an
// earlier subscribe of the same subject. Comma-joined with any caller note.
const NoteRepeat = "repeat"

// MemberUpdate is the per-notification record delivered by the messaging
// transport. DeliveryID is 0 when the transport supplies none; handle and
// display name are "" when unknown.
type MemberUpdate struct {
	ChatKind           ChatKind
	SubjectKind        SubjectKind
	OldStatus          MemberStatus
	NewStatus          MemberStatus
	SubjectExternalID  int64
	SubjectHandle      string
	SubjectDisplayName string
	InviteToken        string
	DeliveryID         int64
	OccurredAt         time.Time
}

// Validate rejects malformed updates before anything is written.
func (u MemberUpdate) Validate() error {
	if !u.ChatKind.Valid() {
		return &ValidationError{Field: "chat_kind", Message: "unknown value " + string(u.ChatKind)}
	}
	if !u.SubjectKind.Valid() {
		return &ValidationError{Field: "subject_kind", Message: "unknown value " + string(u.SubjectKind)}
	}
	if !u.OldStatus.Valid() {
		return &ValidationError{Field: "old_status", Message: "unknown value " + string(u.OldStatus)}
	}
	if !u.NewStatus.Valid() {
		return &ValidationError{Field: "new_status", Message: "unknown value " + string(u.NewStatus)}
	}
	if u.SubjectExternalID == 0 {
		return &ValidationError{Field: "subject_external_id", Message: "required"}
	}
	return nil
}

// JournalEvent is one immutable row of the membership ledger. Rows are never
// updated or deleted after insertion; all current state is derived from them.
type JournalEvent struct {
	ID                int64
	OccurredAt        time.Time
	Type              EventType
	SubjectExternalID int64
	SubjectHandle     string
	SubjectName       string
	InviterID         int64 // 0 when unattributed
	Status            MemberStatus
	Note              string
	DeliveryID        int64 // 0 when the transport supplied none
}
