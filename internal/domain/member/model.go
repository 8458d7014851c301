package member

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"repcount/internal/domain/lifecycle"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Plan constants
const (
	PlanMonthly    = "monthly"
	PlanQuarterly  = "quarterly"
	PlanHalfYearly = "half_yearly"
	PlanYearly     = "yearly"
)

// PlanMonths maps each plan to the number of months one payment buys.
var PlanMonths = map[string]int{
	PlanMonthly:    1,
	PlanQuarterly:  3,
	PlanHalfYearly: 6,
	PlanYearly:     12,
}

// Domain errors
var (
	ErrEmptyName        = errors.New("member name cannot be empty")
	ErrNameTooLong      = errors.New("member name cannot exceed 100 characters")
	ErrInvalidPhone     = errors.New("member phone must be a 10-digit Indian mobile number")
	ErrInvalidEmail     = errors.New("member email must be valid")
	ErrInvalidPlan      = errors.New("plan must be one of: monthly, quarterly, half_yearly, yearly")
	ErrNegativeFee      = errors.New("fee cannot be negative")
	ErrEmptyGymID       = errors.New("member must belong to a gym")
	ErrNoJoinDate       = errors.New("join date must be set")
	ErrNoExpiryDate     = errors.New("expiry date must be set")
	ErrExpiryBeforeJoin = errors.New("expiry date cannot be before join date")
	ErrAlreadyArchived  = errors.New("member is already archived")
	ErrNotArchived      = errors.New("member is not archived")
	ErrInvalidMonths    = errors.New("renewal must cover at least one month")
)

// Member holds state for the concept. Membership status is never stored;
// it is derived from ExpiryDate against a caller-supplied day.
type Member struct {
	ID         string
	GymID      string
	AccountID  string // optional member login
	Name       string
	Phone      string // stored normalized, 91XXXXXXXXXX
	Email      string // optional
	Plan       string
	Fee        decimal.Decimal // price of one plan period
	JoinedOn   lifecycle.Date
	ExpiryDate lifecycle.Date
	BirthDate  lifecycle.Date // optional
	Archived   bool
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Phone normalizes, ExpiryDate is not before JoinedOn
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if m.GymID == "" {
		return ErrEmptyGymID
	}
	if _, ok := lifecycle.NormalizePhone(m.Phone); !ok {
		return ErrInvalidPhone
	}
	if m.Email != "" && !strings.Contains(m.Email, "@") {
		return ErrInvalidEmail
	}
	if _, ok := PlanMonths[m.Plan]; !ok {
		return ErrInvalidPlan
	}
	if m.Fee.IsNegative() {
		return ErrNegativeFee
	}
	if m.JoinedOn.IsZero() {
		return ErrNoJoinDate
	}
	if m.ExpiryDate.IsZero() {
		return ErrNoExpiryDate
	}
	if m.ExpiryDate.Before(m.JoinedOn) {
		return ErrExpiryBeforeJoin
	}
	return nil
}

// Normalize trims free text and rewrites Phone to its 91-prefixed form.
// POST: Phone unchanged when it cannot be normalized; Validate reports it
func (m *Member) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	if p, ok := lifecycle.NormalizePhone(m.Phone); ok {
		m.Phone = p
	}
}

// Status derives the membership status on today.
// INVARIANT: Member fields are not mutated
func (m *Member) Status(today lifecycle.Date) lifecycle.Status {
	return lifecycle.MembershipStatus(m.ExpiryDate, today)
}

// DaysLeft returns days until expiry; negative once expired.
func (m *Member) DaysLeft(today lifecycle.Date) int {
	return lifecycle.DaysUntil(m.ExpiryDate, today)
}

// IsBirthday reports whether today is the member's birthday. Members born
// on 29 February celebrate on 28 February in common years.
func (m *Member) IsBirthday(today lifecycle.Date) bool {
	if m.BirthDate.IsZero() {
		return false
	}
	month, day := m.BirthDate.Month, m.BirthDate.Day
	if month == 2 && day == 29 && !isLeap(today.Year) {
		day = 28
	}
	return today.Month == month && today.Day == day
}

// JoinedToday reports whether the member joined on today.
func (m *Member) JoinedToday(today lifecycle.Date) bool {
	return m.JoinedOn == today
}

// Renew extends the membership by months. A lapsed membership restarts
// from today; a running one extends from its current expiry.
// PRE: months >= 1
// POST: ExpiryDate moved forward; returns the period start
func (m *Member) Renew(months int, today lifecycle.Date) (lifecycle.Date, error) {
	if months < 1 {
		return lifecycle.Date{}, ErrInvalidMonths
	}
	start := m.ExpiryDate
	if start.IsZero() || start.Before(today) {
		start = today
	}
	m.ExpiryDate = start.AddMonths(months)
	return start, nil
}

// RenewPlan extends the membership by one period of the member's plan.
func (m *Member) RenewPlan(today lifecycle.Date) (lifecycle.Date, error) {
	months, ok := PlanMonths[m.Plan]
	if !ok {
		return lifecycle.Date{}, ErrInvalidPlan
	}
	return m.Renew(months, today)
}

// Archive hides the member from lists and reminders.
// PRE: Member is not already archived
// POST: Archived is true
func (m *Member) Archive() error {
	if m.Archived {
		return ErrAlreadyArchived
	}
	m.Archived = true
	return nil
}

// Restore brings an archived member back.
// PRE: Member is currently archived
// POST: Archived is false
func (m *Member) Restore() error {
	if !m.Archived {
		return ErrNotArchived
	}
	m.Archived = false
	return nil
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
