package domain

// Subject is a tracked person, identified by the platform's stable external
// id. Created on first sighting; handle and name are backfilled when they
// become known, never cleared.
type Subject struct {
	ID         int64
	ExternalID int64
	Handle     string
	Name       string
}
