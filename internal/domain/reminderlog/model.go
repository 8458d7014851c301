package reminderlog

import (
	"errors"
	"time"

	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/reminder"
)

// Domain errors
var (
	ErrEmptyMemberID = errors.New("reminder log entry must name a member")
	ErrUnknownKind   = errors.New("reminder log entry has an unknown kind")
	ErrNoSentOn      = errors.New("reminder log entry must have a send date")
)

// Entry records that the owner sent a reminder. At most one entry exists
// per member, kind and day.
type Entry struct {
	ID       string
	GymID    string
	MemberID string
	Kind     reminder.Kind
	SentOn   lifecycle.Date
	SentAt   time.Time
}

// Key identifies the (member, kind, day) slot an entry occupies.
type Key struct {
	MemberID string
	Kind     reminder.Kind
	SentOn   lifecycle.Date
}

// Key returns the slot this entry occupies.
func (e *Entry) Key() Key {
	return Key{MemberID: e.MemberID, Kind: e.Kind, SentOn: e.SentOn}
}

// Validate checks if the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.MemberID == "" {
		return ErrEmptyMemberID
	}
	if !e.Kind.Valid() {
		return ErrUnknownKind
	}
	if e.SentOn.IsZero() {
		return ErrNoSentOn
	}
	return nil
}

// SentSet indexes entries by key for quick lookups.
func SentSet(entries []Entry) map[Key]bool {
	set := make(map[Key]bool, len(entries))
	for i := range entries {
		set[entries[i].Key()] = true
	}
	return set
}
