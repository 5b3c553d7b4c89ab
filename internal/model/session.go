package model

import "time"

// SessionRecord is the persisted form of a mapping session.
type SessionRecord struct {
	AcceptedAt *time.Time
	ID         string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Accounts   []Account
	Entries    []MappingEntry
}

// Accepted reports whether the session has been accepted.
func (r *SessionRecord) Accepted() bool {
	return r.AcceptedAt != nil
}

// MappedCount returns how many entries carry an account.
func (r *SessionRecord) MappedCount() int {
	n := 0
	for i := range r.Entries {
		if r.Entries[i].Mapped() {
			n++
		}
	}
	return n
}

// SessionSummary is a compact listing row for stored sessions.
type SessionSummary struct {
	AcceptedAt *time.Time
	ID         string
	CreatedAt  time.Time
	Total      int
	Mapped     int
}
