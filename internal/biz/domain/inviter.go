package domain

import "strings"

// Inviter is an identity credited with bringing subjects in. The id is
// stable across updates so historical journal rows keep a valid reference.
type Inviter struct {
	ID            int64
	Name          string
	Handle        string
	InviteToken   string
	SourceChannel string
}

// NormalizeHandle stores handles with a single leading @. Empty input stays
// empty.
func NormalizeHandle(handle string) string {
	if handle == "" {
		return ""
	}
	return "@" + strings.TrimPrefix(handle, "@")
}

// DisplayLabel prefers the handle over the plain name for reporting.
func (i Inviter) DisplayLabel() string {
	if i.Handle != "" {
		return i.Handle
	}
	return i.Name
}
