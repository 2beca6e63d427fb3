package domain

// ValidationError reports malformed input rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// AttributionError reports an invite token that resolves to no registered
// inviter. Only surfaced when the attribution policy is set to reject.
type AttributionError struct {
	InviteToken string
}

func (e *AttributionError) Error() string {
	return "no inviter registered for invite token " + e.InviteToken
}

// StorageError wraps a persistence failure. It is always propagated: a
// swallowed one would mean a membership event was silently lost.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// AttributionPolicy decides what to do with an unresolved invite token.
type AttributionPolicy string

const (
	// PolicyDropAttribution records the event without an inviter and logs.
	PolicyDropAttribution AttributionPolicy = "drop"
	// PolicyRejectUnresolved refuses the event with an AttributionError.
	PolicyRejectUnresolved AttributionPolicy = "reject"
)

// Valid reports whether the policy is a known value.
func (p AttributionPolicy) Valid() bool {
	return p == PolicyDropAttribution || p == PolicyRejectUnresolved
}
