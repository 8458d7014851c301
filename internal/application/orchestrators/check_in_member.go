package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/attendance"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/member"
)

// AttendanceStore defines the interface for check-in persistence.
type AttendanceStore interface {
	Save(ctx context.Context, c attendance.CheckIn) error
}

// CheckInMemberInput carries input for the check-in orchestrator.
// Code is either a scanned card payload (the member ID) or, for manual
// check-ins at the desk, the member's phone number.
type CheckInMemberInput struct {
	GymID  string
	Code   string
	Method string // attendance.MethodQR or attendance.MethodManual
}

// CheckInMemberResult tells the front desk who walked in.
type CheckInMemberResult struct {
	CheckIn    attendance.CheckIn
	MemberName string
	Status     lifecycle.Status
	DaysLeft   int
}

// CheckInMemberDeps holds dependencies for CheckInMember.
type CheckInMemberDeps struct {
	MemberStore     MemberStore
	AttendanceStore AttendanceStore
	Now             func() time.Time
	GenerateID      func() string
}

// ExecuteCheckInMember records a member's visit for today.
// PRE: Code identifies a member of GymID
// POST: One CheckIn exists for (member, IST today)
// INVARIANT: archived and expired members are turned away; a second
// check-in on the same day returns attendance.ErrAlreadyCheckedIn
func ExecuteCheckInMember(ctx context.Context, input CheckInMemberInput, deps CheckInMemberDeps) (CheckInMemberResult, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return CheckInMemberResult{}, invalid(errors.New("member code is required"))
	}
	if input.Method == "" {
		input.Method = attendance.MethodQR
	}

	m, err := findCheckInMember(ctx, deps.MemberStore, input.GymID, code, input.Method)
	if err != nil {
		return CheckInMemberResult{}, err
	}
	if m.Archived {
		return CheckInMemberResult{}, ErrMemberArchived
	}

	now := deps.Now()
	today := lifecycle.DateOf(now)
	status := m.Status(today)
	if status == lifecycle.StatusExpired {
		slog.Info("checkin_event", "event", "checkin_refused", "member_id", m.ID, "reason", "expired")
		return CheckInMemberResult{}, ErrMembershipExpired
	}

	c := attendance.New(deps.GenerateID(), m.ID, m.GymID, input.Method, now)
	if err := c.Validate(); err != nil {
		return CheckInMemberResult{}, invalid(err)
	}
	if err := deps.AttendanceStore.Save(ctx, c); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return CheckInMemberResult{}, attendance.ErrAlreadyCheckedIn
		}
		return CheckInMemberResult{}, err
	}

	slog.Info("checkin_event", "event", "member_checked_in", "member_id", m.ID, "method", c.Method, "status", string(status))
	return CheckInMemberResult{
		CheckIn:    c,
		MemberName: m.Name,
		Status:     status,
		DaysLeft:   m.DaysLeft(today),
	}, nil
}

// findCheckInMember resolves a code by member ID, falling back to phone for
// manual check-ins.
func findCheckInMember(ctx context.Context, store MemberStore, gymID, code, method string) (member.Member, error) {
	m, err := loadGymMember(ctx, store, gymID, code)
	if err == nil || method != attendance.MethodManual || !errors.Is(err, storage.ErrNotFound) {
		return m, err
	}
	phone, ok := lifecycle.NormalizePhone(code)
	if !ok {
		return member.Member{}, fmt.Errorf("member %s: %w", code, storage.ErrNotFound)
	}
	return store.GetByPhone(ctx, gymID, phone)
}
