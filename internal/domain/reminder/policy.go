package reminder

import "repcount/internal/domain/lifecycle"

// Event is a one-day occasion that triggers a reminder regardless of status.
type Event string

// Events.
const (
	EventNone     Event = ""
	EventBirthday Event = "birthday"
	EventJoined   Event = "joined"
)

// Metric names the elapsed-days figure a rule bounds.
type Metric string

// Metrics.
const (
	MetricNone             Metric = ""
	MetricDaysUntilExpiry  Metric = "days_until_expiry"
	MetricDaysSinceExpiry  Metric = "days_since_expiry"
	MetricDaysSinceCheckIn Metric = "days_since_checkin"
)

// Unbounded marks a rule without an upper day limit.
const Unbounded = -1

// InactiveAfterDays is how long an active member may go without checking in
// before an inactive_checkin reminder is due.
const InactiveAfterDays = 7

// Facts are the per-member inputs the policy decides on. Callers compute
// them for a fixed "today"; the policy never reads a clock.
type Facts struct {
	Status           lifecycle.Status
	DaysUntilExpiry  int
	DaysSinceCheckIn int // days since last check-in, or since joining if never
	IsBirthday       bool
	JoinedToday      bool
}

// Rule is one row of the decision table. A rule matches when its event
// occurred (or it has none), the status matches (or is empty), and the
// metric lies within [MinDays, MaxDays].
type Rule struct {
	Event   Event
	Status  lifecycle.Status
	Metric  Metric
	MinDays int
	MaxDays int // Unbounded for no limit
	Kind    Kind
}

// Policy is an ordered decision table; the first matching rule wins.
type Policy []Rule

// DefaultPolicy is status × elapsed-days → template kind.
var DefaultPolicy = Policy{
	{Event: EventBirthday, Kind: KindBirthday},
	{Event: EventJoined, Kind: KindWelcome},
	{Status: lifecycle.StatusExpired, Metric: MetricDaysSinceExpiry, MinDays: 1, MaxDays: Unbounded, Kind: KindOverdue},
	{Status: lifecycle.StatusExpiring, Metric: MetricDaysUntilExpiry, MinDays: 0, MaxDays: lifecycle.ExpiringWindowDays, Kind: KindRenewal},
	{Status: lifecycle.StatusActive, Metric: MetricDaysSinceCheckIn, MinDays: InactiveAfterDays, MaxDays: Unbounded, Kind: KindInactive},
}

// Select returns the template kind for the first rule matching f.
// POST: ok is false when no reminder is due
func (p Policy) Select(f Facts) (kind Kind, ok bool) {
	for _, r := range p {
		if r.matches(f) {
			return r.Kind, true
		}
	}
	return "", false
}

func (r Rule) matches(f Facts) bool {
	switch r.Event {
	case EventBirthday:
		if !f.IsBirthday {
			return false
		}
	case EventJoined:
		if !f.JoinedToday {
			return false
		}
	}
	if r.Status != "" && r.Status != f.Status {
		return false
	}

	var days int
	switch r.Metric {
	case MetricNone:
		return true
	case MetricDaysUntilExpiry:
		days = f.DaysUntilExpiry
	case MetricDaysSinceExpiry:
		days = -f.DaysUntilExpiry
	case MetricDaysSinceCheckIn:
		days = f.DaysSinceCheckIn
	default:
		return false
	}
	if days < r.MinDays {
		return false
	}
	return r.MaxDays == Unbounded || days <= r.MaxDays
}
