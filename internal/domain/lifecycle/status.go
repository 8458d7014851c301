package lifecycle

// Status is the derived state of a membership window. It is recomputed on
// every read and never persisted.
type Status string

// Membership statuses.
const (
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

// ExpiringWindowDays is the inclusive number of days before expiry during
// which a membership counts as expiring.
const ExpiringWindowDays = 7

// MembershipStatus derives the status of a membership expiring on expiry.
// Same-day expiry is expiring, not active; day 7 is still expiring; day 8 is active.
func MembershipStatus(expiry, today Date) Status {
	days := DaysUntil(expiry, today)
	switch {
	case days < 0:
		return StatusExpired
	case days <= ExpiringWindowDays:
		return StatusExpiring
	default:
		return StatusActive
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpiring, StatusExpired:
		return true
	}
	return false
}
