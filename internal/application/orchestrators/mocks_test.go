package orchestrators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/account"
	"repcount/internal/domain/attendance"
	"repcount/internal/domain/gym"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/member"
	"repcount/internal/domain/outbox"
	"repcount/internal/domain/payment"
	"repcount/internal/domain/reminderlog"
)

// 09:30 IST on 17 Oct 2026.
var clock = time.Date(2026, time.October, 17, 4, 0, 0, 0, time.UTC)

var clockDay = lifecycle.DateOf(clock)

func clockNow() time.Time { return clock }

// sequentialIDs returns a generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func seededMember(id string, expiry lifecycle.Date) member.Member {
	return member.Member{
		ID:         id,
		GymID:      "gym-1",
		Name:       "Rahul Sharma",
		Phone:      "919876543210",
		Plan:       member.PlanMonthly,
		Fee:        decimal.NewFromInt(1500),
		JoinedOn:   clockDay.AddDays(-60),
		ExpiryDate: expiry,
	}
}

type fakeMemberStore struct {
	members map[string]member.Member
	saves   int
}

func newFakeMemberStore(ms ...member.Member) *fakeMemberStore {
	s := &fakeMemberStore{members: make(map[string]member.Member)}
	for _, m := range ms {
		s.members[m.ID] = m
	}
	return s
}

// Save stores m, rejecting a phone already used by another member of the gym.
func (s *fakeMemberStore) Save(_ context.Context, m member.Member) error {
	for _, other := range s.members {
		if other.ID != m.ID && other.GymID == m.GymID && other.Phone == m.Phone {
			return fmt.Errorf("member phone %s: %w", m.Phone, storage.ErrConflict)
		}
	}
	s.members[m.ID] = m
	s.saves++
	return nil
}

// GetByID returns the stored member.
func (s *fakeMemberStore) GetByID(_ context.Context, id string) (member.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return member.Member{}, fmt.Errorf("member %s: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

// GetByPhone returns the gym's member with phone.
func (s *fakeMemberStore) GetByPhone(_ context.Context, gymID, phone string) (member.Member, error) {
	for _, m := range s.members {
		if m.GymID == gymID && m.Phone == phone {
			return m, nil
		}
	}
	return member.Member{}, fmt.Errorf("member phone %s: %w", phone, storage.ErrNotFound)
}

type fakePaymentStore struct {
	payments []payment.Payment
	members  *fakeMemberStore // receives renewed expiries when set
	err      error            // returned by RecordRenewal when set
}

// Save appends p.
func (s *fakePaymentStore) Save(_ context.Context, p payment.Payment) error {
	s.payments = append(s.payments, p)
	return nil
}

// RecordRenewal appends p and moves the member's expiry, or changes nothing on err.
func (s *fakePaymentStore) RecordRenewal(_ context.Context, p payment.Payment, expiry lifecycle.Date) error {
	if s.err != nil {
		return s.err
	}
	s.payments = append(s.payments, p)
	if s.members != nil {
		m := s.members.members[p.MemberID]
		m.ExpiryDate = expiry
		s.members.members[p.MemberID] = m
	}
	return nil
}

type fakeAttendanceStore struct {
	checkIns []attendance.CheckIn
}

// Save enforces one check-in per member per day.
func (s *fakeAttendanceStore) Save(_ context.Context, c attendance.CheckIn) error {
	for _, existing := range s.checkIns {
		if existing.MemberID == c.MemberID && existing.Date == c.Date {
			return fmt.Errorf("check-in %s: %w", c.MemberID, storage.ErrConflict)
		}
	}
	s.checkIns = append(s.checkIns, c)
	return nil
}

type fakeReminderLogStore struct {
	entries []reminderlog.Entry
}

// Save enforces one entry per (member, kind, day).
func (s *fakeReminderLogStore) Save(_ context.Context, e reminderlog.Entry) error {
	for _, existing := range s.entries {
		if existing.Key() == e.Key() {
			return fmt.Errorf("reminder log: %w", storage.ErrConflict)
		}
	}
	s.entries = append(s.entries, e)
	return nil
}

type fakeGymStore struct {
	gyms map[string]gym.Gym
}

func newFakeGymStore(gs ...gym.Gym) *fakeGymStore {
	s := &fakeGymStore{gyms: make(map[string]gym.Gym)}
	for _, g := range gs {
		s.gyms[g.ID] = g
	}
	return s
}

// GetByID returns the stored gym.
func (s *fakeGymStore) GetByID(_ context.Context, id string) (gym.Gym, error) {
	g, ok := s.gyms[id]
	if !ok {
		return gym.Gym{}, fmt.Errorf("gym %s: %w", id, storage.ErrNotFound)
	}
	return g, nil
}

// GetBySlug returns the gym with slug.
func (s *fakeGymStore) GetBySlug(_ context.Context, slug string) (gym.Gym, error) {
	for _, g := range s.gyms {
		if g.Slug == slug {
			return g, nil
		}
	}
	return gym.Gym{}, fmt.Errorf("gym slug %s: %w", slug, storage.ErrNotFound)
}

// Save stores g.
func (s *fakeGymStore) Save(_ context.Context, g gym.Gym) error {
	s.gyms[g.ID] = g
	return nil
}

// List returns every stored gym.
func (s *fakeGymStore) List(_ context.Context) ([]gym.Gym, error) {
	var out []gym.Gym
	for _, g := range s.gyms {
		out = append(out, g)
	}
	return out, nil
}

type fakeAccountStore struct {
	accounts map[string]account.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]account.Account)}
}

// GetByID returns the stored account.
func (s *fakeAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return a, nil
}

// GetByEmail matches case-insensitively.
func (s *fakeAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, strings.TrimSpace(email)) {
			return a, nil
		}
	}
	return account.Account{}, fmt.Errorf("account %s: %w", email, storage.ErrNotFound)
}

// Save stores a.
func (s *fakeAccountStore) Save(_ context.Context, a account.Account) error {
	s.accounts[a.ID] = a
	return nil
}

// Count returns the number of stored accounts.
func (s *fakeAccountStore) Count(_ context.Context) (int, error) {
	return len(s.accounts), nil
}

type fakeOutboxStore struct {
	entries map[string]outbox.Entry
	order   []string
}

func newFakeOutboxStore() *fakeOutboxStore {
	return &fakeOutboxStore{entries: make(map[string]outbox.Entry)}
}

// GetByID returns the stored entry.
func (s *fakeOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return outbox.Entry{}, fmt.Errorf("outbox %s: %w", id, storage.ErrNotFound)
	}
	return e, nil
}

// Create inserts e once.
func (s *fakeOutboxStore) Create(_ context.Context, e outbox.Entry) error {
	if _, ok := s.entries[e.ID]; ok {
		return fmt.Errorf("outbox %s: %w", e.ID, storage.ErrConflict)
	}
	s.entries[e.ID] = e
	s.order = append(s.order, e.ID)
	return nil
}

// Save upserts e.
func (s *fakeOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	if _, ok := s.entries[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.entries[e.ID] = e
	return nil
}

// ListPending returns due pending or retrying entries in insertion order.
func (s *fakeOutboxStore) ListPending(_ context.Context, now time.Time, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, id := range s.order {
		e := s.entries[id]
		if (e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying) && e.IsDue(now) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListForGym returns gymID's entries in status, newest first.
func (s *fakeOutboxStore) ListForGym(_ context.Context, gymID, status string, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[s.order[i]]
		match := e.Status == status || (status == outbox.StatusPending && e.Status == outbox.StatusRetrying)
		if e.GymID == gymID && match {
			out = append(out, e)
		}
	}
	return out, nil
}
