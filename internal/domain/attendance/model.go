package attendance

import (
	"errors"
	"time"

	"repcount/internal/domain/lifecycle"
)

// Method constants
const (
	MethodQR     = "qr"
	MethodManual = "manual"
)

// Domain errors
var (
	ErrEmptyMemberID    = errors.New("check-in must be associated with a member")
	ErrEmptyGymID       = errors.New("check-in must be associated with a gym")
	ErrNoCheckInTime    = errors.New("check-in time must be set")
	ErrInvalidMethod    = errors.New("method must be 'qr' or 'manual'")
	ErrDateMismatch     = errors.New("check-in date must match the check-in time")
	ErrAlreadyCheckedIn = errors.New("member already checked in today")
)

// CheckIn records one visit. A member checks in at most once per day.
type CheckIn struct {
	ID          string
	MemberID    string
	GymID       string
	CheckedInAt time.Time
	Date        lifecycle.Date // gym-local day of CheckedInAt
	Method      string
}

// New builds a check-in stamped at now.
// POST: Date is the gym-local day of now
func New(id, memberID, gymID, method string, now time.Time) CheckIn {
	return CheckIn{
		ID:          id,
		MemberID:    memberID,
		GymID:       gymID,
		CheckedInAt: now,
		Date:        lifecycle.DateOf(now),
		Method:      method,
	}
}

// Validate checks if the CheckIn has valid data.
// PRE: CheckIn struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Date is the gym-local day of CheckedInAt
func (c *CheckIn) Validate() error {
	if c.MemberID == "" {
		return ErrEmptyMemberID
	}
	if c.GymID == "" {
		return ErrEmptyGymID
	}
	if c.CheckedInAt.IsZero() {
		return ErrNoCheckInTime
	}
	if c.Method != MethodQR && c.Method != MethodManual {
		return ErrInvalidMethod
	}
	if lifecycle.DateOf(c.CheckedInAt) != c.Date {
		return ErrDateMismatch
	}
	return nil
}
