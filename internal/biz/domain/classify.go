package domain

// Classify maps a raw membership transition to its canonical event type.
// The second return is false for transitions that are not tracked; those
// must never reach the journal.
//
// Pure and total: any combination of valid inputs yields a deterministic
// answer with no side effects.
func Classify(chat ChatKind, subject SubjectKind, old, new MemberStatus) (EventType, bool) {
	if subject == SubjectBot {
		return classifyBot(old, new)
	}

	switch chat {
	case ChatChannel:
		switch {
		case old == StatusLeft && new == StatusMember:
			return EventSubscribe, true
		case old == StatusMember && new == StatusLeft:
			return EventUnsubscribe, true
		case old == StatusMember && new == StatusBanned:
			return EventChannelBanned, true
		case old == StatusBanned && new == StatusMember:
			return EventChannelUnbanned, true
		}

	case ChatGroup, ChatSupergroup:
		switch {
		case old == StatusLeft && isPresent(new):
			return EventGroupJoin, true
		case isPresent(old) && new == StatusLeft:
			return EventGroupLeave, true
		case isPresent(old) && new == StatusBanned:
			return EventGroupBanned, true
		case old == StatusBanned && isPresent(new):
			return EventGroupUnbanned, true
		case old == StatusMember && new == StatusAdministrator:
			return EventGroupPromoted, true
		case old == StatusAdministrator && new == StatusMember:
			return EventGroupDemoted, true
		}

	case ChatPrivate:
		switch {
		case old == StatusLeft && new == StatusMember:
			return EventPrivateUnblocked, true
		case old == StatusMember && new == StatusBanned:
			return EventPrivateBlocked, true
		}
	}

	return "", false
}

// classifyBot covers transitions of the tracked bot itself, which are the
// same for every chat kind.
func classifyBot(old, new MemberStatus) (EventType, bool) {
	switch {
	case old == StatusLeft && isActive(new):
		return EventBotAdded, true
	case isActive(old) && new == StatusLeft:
		return EventBotRemoved, true
	case isActive(old) && new == StatusBanned:
		return EventBotBanned, true
	case old == StatusBanned && isActive(new):
		return EventBotUnbanned, true
	case old == StatusMember && new == StatusAdministrator:
		return EventBotPromoted, true
	case old == StatusAdministrator && new == StatusMember:
		return EventBotDemoted, true
	}
	return "", false
}

// isPresent: in a group the subject counts as inside whether full member or
// restricted.
func isPresent(s MemberStatus) bool {
	return s == StatusMember || s == StatusRestricted
}

// isActive: a bot counts as inside whether plain member or administrator.
func isActive(s MemberStatus) bool {
	return s == StatusMember || s == StatusAdministrator
}
