package projections

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/storage"
	"repcount/internal/adapters/storage/member"
	domainAttendance "repcount/internal/domain/attendance"
	domainGym "repcount/internal/domain/gym"
	"repcount/internal/domain/lifecycle"
	domainMember "repcount/internal/domain/member"
	domainPayment "repcount/internal/domain/payment"
	domainReminderLog "repcount/internal/domain/reminderlog"
)

var today = lifecycle.NewDate(2026, time.October, 17)

var testGym = domainGym.Gym{
	ID:      "gym-1",
	Name:    "FitZone",
	Slug:    "fitzone",
	UPIID:   "fitzone@okaxis",
	AppLink: "https://repcount.app/m/fitzone",
}

func newMember(id, name string, expiry lifecycle.Date) domainMember.Member {
	return domainMember.Member{
		ID:         id,
		GymID:      testGym.ID,
		Name:       name,
		Phone:      "919876543210",
		Plan:       domainMember.PlanMonthly,
		Fee:        decimal.NewFromInt(1500),
		JoinedOn:   today.AddDays(-60),
		ExpiryDate: expiry,
	}
}

type mockMemberStore struct {
	members    []domainMember.Member
	lastFilter member.ListFilter
}

// GetByID returns a seeded member by ID.
// PRE: id is non-empty
// POST: Returns the seeded member or an error wrapping storage.ErrNotFound
func (s *mockMemberStore) GetByID(_ context.Context, id string) (domainMember.Member, error) {
	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return domainMember.Member{}, fmt.Errorf("member %s: %w", id, storage.ErrNotFound)
}

// GetByAccountID returns the seeded member linked to accountID.
func (s *mockMemberStore) GetByAccountID(_ context.Context, accountID string) (domainMember.Member, error) {
	for _, m := range s.members {
		if m.AccountID == accountID {
			return m, nil
		}
	}
	return domainMember.Member{}, fmt.Errorf("account %s: %w", accountID, storage.ErrNotFound)
}

func (s *mockMemberStore) filter(f member.ListFilter) []domainMember.Member {
	var out []domainMember.Member
	for _, m := range s.members {
		if f.GymID != "" && m.GymID != f.GymID {
			continue
		}
		if m.Archived != f.Archived {
			continue
		}
		if f.Status != "" && m.Status(f.Today) != f.Status {
			continue
		}
		out = append(out, m)
	}
	return out
}

// List returns seeded members matching the filter, paged.
func (s *mockMemberStore) List(_ context.Context, f member.ListFilter) ([]domainMember.Member, error) {
	s.lastFilter = f
	out := s.filter(f)
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

// Count returns the number of seeded members matching the filter.
func (s *mockMemberStore) Count(_ context.Context, f member.ListFilter) (int, error) {
	return len(s.filter(f)), nil
}

type mockGymStore struct {
	gym domainGym.Gym
}

// GetByID returns the seeded gym.
func (s *mockGymStore) GetByID(_ context.Context, id string) (domainGym.Gym, error) {
	if id != s.gym.ID {
		return domainGym.Gym{}, fmt.Errorf("gym %s: %w", id, storage.ErrNotFound)
	}
	return s.gym, nil
}

type mockCheckInStore struct {
	checkIns []domainAttendance.CheckIn // newest first
}

// GetByMemberAndDate returns the seeded check-in for the member and day.
func (s *mockCheckInStore) GetByMemberAndDate(_ context.Context, memberID string, date lifecycle.Date) (domainAttendance.CheckIn, error) {
	for _, c := range s.checkIns {
		if c.MemberID == memberID && c.Date == date {
			return c, nil
		}
	}
	return domainAttendance.CheckIn{}, storage.ErrNotFound
}

// ListByMember returns up to limit seeded check-ins for the member.
func (s *mockCheckInStore) ListByMember(_ context.Context, memberID string, limit int) ([]domainAttendance.CheckIn, error) {
	var out []domainAttendance.CheckIn
	for _, c := range s.checkIns {
		if c.MemberID == memberID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

// LastCheckIns maps each member to their latest seeded check-in day.
func (s *mockCheckInStore) LastCheckIns(_ context.Context, _ string) (map[string]lifecycle.Date, error) {
	last := make(map[string]lifecycle.Date)
	for _, c := range s.checkIns {
		if cur, ok := last[c.MemberID]; !ok || c.Date.After(cur) {
			last[c.MemberID] = c.Date
		}
	}
	return last, nil
}

// CountBetween counts seeded check-ins within [from, to].
func (s *mockCheckInStore) CountBetween(_ context.Context, _ string, from, to lifecycle.Date) (int, error) {
	n := 0
	for _, c := range s.checkIns {
		if !c.Date.Before(from) && !c.Date.After(to) {
			n++
		}
	}
	return n, nil
}

func checkIn(memberID string, day lifecycle.Date) domainAttendance.CheckIn {
	return domainAttendance.CheckIn{
		ID:          memberID + "-" + day.String(),
		MemberID:    memberID,
		GymID:       testGym.ID,
		CheckedInAt: day.Midnight().Add(7 * time.Hour),
		Date:        day,
		Method:      domainAttendance.MethodQR,
	}
}

type mockPaymentStore struct {
	payments []domainPayment.Payment
	from, to time.Time
}

// ListByMember returns the seeded payments for the member.
func (s *mockPaymentStore) ListByMember(_ context.Context, memberID string) ([]domainPayment.Payment, error) {
	var out []domainPayment.Payment
	for _, p := range s.payments {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	return out, nil
}

// SumBetween totals seeded payments in [from, to) and records the bounds.
func (s *mockPaymentStore) SumBetween(_ context.Context, _ string, from, to time.Time) (decimal.Decimal, error) {
	s.from, s.to = from, to
	var in []domainPayment.Payment
	for _, p := range s.payments {
		if !p.PaidAt.Before(from) && p.PaidAt.Before(to) {
			in = append(in, p)
		}
	}
	return domainPayment.Total(in), nil
}

type mockReminderLogStore struct {
	entries []domainReminderLog.Entry
}

// ListByGymAndDate returns seeded entries sent on date.
func (s *mockReminderLogStore) ListByGymAndDate(_ context.Context, _ string, date lifecycle.Date) ([]domainReminderLog.Entry, error) {
	var out []domainReminderLog.Entry
	for _, e := range s.entries {
		if e.SentOn == date {
			out = append(out, e)
		}
	}
	return out, nil
}
