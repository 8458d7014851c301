package projections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"repcount/internal/adapters/storage/member"
	domainGym "repcount/internal/domain/gym"
	"repcount/internal/domain/lifecycle"
	domainMember "repcount/internal/domain/member"
	"repcount/internal/domain/reminder"
	"repcount/internal/domain/reminderlog"
)

// ErrNoReminderDue is returned when the policy selects nothing for a member.
var ErrNoReminderDue = errors.New("no reminder due")

// GetDueRemindersQuery carries query parameters.
type GetDueRemindersQuery struct {
	GymID       string
	Today       lifecycle.Date
	Policy      reminder.Policy // nil means reminder.DefaultPolicy
	IncludeSent bool            // keep reminders already sent today, flagged Sent
}

// GetDueRemindersDeps holds dependencies for GetDueReminders.
type GetDueRemindersDeps struct {
	MemberStore      MemberStore
	GymStore         GymStore
	CheckInStore     CheckInStore
	ReminderLogStore ReminderLogStore
}

// DueReminder is one message the owner should send today.
type DueReminder struct {
	MemberID   string           `json:"member_id"`
	MemberName string           `json:"member_name"`
	Phone      string           `json:"phone"`
	Status     lifecycle.Status `json:"status"`
	DaysLeft   int              `json:"days_left"`
	Kind       reminder.Kind    `json:"kind"`
	Message    string           `json:"message"`
	Link       string           `json:"link"`
	Sent       bool             `json:"sent"`
}

// GetDueRemindersResult carries the query result.
type GetDueRemindersResult struct {
	Today     lifecycle.Date `json:"today"`
	GymName   string         `json:"gym_name"`
	Reminders []DueReminder  `json:"reminders"`
	Skipped   int            `json:"skipped"` // members whose message could not be built
}

// memberFacts gathers everything the policy and renderer need for one member.
type memberFacts struct {
	facts   reminder.Facts
	context reminder.Context
}

func factsFor(g domainGym.Gym, m domainMember.Member, lastSeen lifecycle.Date, today lifecycle.Date) memberFacts {
	since := m.JoinedOn
	if !lastSeen.IsZero() {
		since = lastSeen
	}
	daysLeft := m.DaysLeft(today)
	inactive := lifecycle.DaysSince(since, today)

	c := reminder.Context{
		MemberName:   m.Name,
		GymName:      g.Name,
		Phone:        m.Phone,
		ExpiryDate:   m.ExpiryDate,
		InactiveDays: inactive,
		AppLink:      g.MemberAppLink(),
		UPIID:        g.UPIID,
	}
	if daysLeft < 0 {
		c.OverdueDays = -daysLeft
		c.OverdueAmount = m.Fee
	}
	return memberFacts{
		facts: reminder.Facts{
			Status:           m.Status(today),
			DaysUntilExpiry:  daysLeft,
			DaysSinceCheckIn: inactive,
			IsBirthday:       m.IsBirthday(today),
			JoinedToday:      m.JoinedToday(today),
		},
		context: c,
	}
}

// buildReminder renders kind for m and wraps it in a chat link.
func buildReminder(m domainMember.Member, mf memberFacts, kind reminder.Kind) (DueReminder, error) {
	msg, err := reminder.Render(kind, mf.context)
	if err != nil {
		return DueReminder{}, err
	}
	link, err := reminder.BuildLink(m.Phone, msg)
	if err != nil {
		return DueReminder{}, err
	}
	return DueReminder{
		MemberID:   m.ID,
		MemberName: m.Name,
		Phone:      lifecycle.FormatPhone(m.Phone),
		Status:     mf.facts.Status,
		DaysLeft:   mf.facts.DaysUntilExpiry,
		Kind:       kind,
		Message:    msg,
		Link:       link,
	}, nil
}

// QueryGetDueReminders lists today's reminders for a gym.
// PRE: GymID and Today are set
// POST: At most one reminder per member; a (member, kind) already logged
// for Today is omitted unless IncludeSent; members whose message cannot be
// built are logged and counted in Skipped
// INVARIANT: never reads the clock; Today alone decides
func QueryGetDueReminders(ctx context.Context, query GetDueRemindersQuery, deps GetDueRemindersDeps) (GetDueRemindersResult, error) {
	policy := query.Policy
	if policy == nil {
		policy = reminder.DefaultPolicy
	}

	g, err := deps.GymStore.GetByID(ctx, query.GymID)
	if err != nil {
		return GetDueRemindersResult{}, fmt.Errorf("load gym: %w", err)
	}
	members, err := deps.MemberStore.List(ctx, member.ListFilter{GymID: query.GymID, Today: query.Today, Limit: allMembers})
	if err != nil {
		return GetDueRemindersResult{}, fmt.Errorf("list members: %w", err)
	}
	lastSeen, err := deps.CheckInStore.LastCheckIns(ctx, query.GymID)
	if err != nil {
		return GetDueRemindersResult{}, fmt.Errorf("load last check-ins: %w", err)
	}
	logged, err := deps.ReminderLogStore.ListByGymAndDate(ctx, query.GymID, query.Today)
	if err != nil {
		return GetDueRemindersResult{}, fmt.Errorf("load reminder log: %w", err)
	}
	sent := reminderlog.SentSet(logged)

	result := GetDueRemindersResult{Today: query.Today, GymName: g.Name, Reminders: []DueReminder{}}
	for _, m := range members {
		mf := factsFor(g, m, lastSeen[m.ID], query.Today)
		kind, ok := policy.Select(mf.facts)
		if !ok {
			continue
		}
		already := sent[reminderlog.Key{MemberID: m.ID, Kind: kind, SentOn: query.Today}]
		if already && !query.IncludeSent {
			continue
		}
		due, err := buildReminder(m, mf, kind)
		if err != nil {
			slog.Warn("reminder_event", "event", "reminder_skipped", "member_id", m.ID, "kind", string(kind), "error", err)
			result.Skipped++
			continue
		}
		due.Sent = already
		result.Reminders = append(result.Reminders, due)
	}
	return result, nil
}

// GetReminderQuery selects a single member's reminder. An empty Kind lets
// the policy choose.
type GetReminderQuery struct {
	GymID    string
	MemberID string
	Kind     reminder.Kind
	Today    lifecycle.Date
	Policy   reminder.Policy
}

// GetReminderDeps holds dependencies for GetReminder.
type GetReminderDeps struct {
	MemberStore  MemberStore
	GymStore     GymStore
	CheckInStore CheckInStore
}

// QueryGetReminder renders one member's reminder and its chat link.
// PRE: GymID, MemberID and Today are set
// POST: Returns ErrNoReminderDue when Kind is empty and the policy selects
// nothing; render errors wrap reminder.ErrIncompleteContext or
// reminder.ErrUnknownKind; a bad phone wraps lifecycle.ErrMalformedInput
func QueryGetReminder(ctx context.Context, query GetReminderQuery, deps GetReminderDeps) (DueReminder, error) {
	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return DueReminder{}, err
	}
	if m.GymID != query.GymID {
		return DueReminder{}, fmt.Errorf("member %s is not in gym %s: %w", m.ID, query.GymID, ErrNoReminderDue)
	}
	g, err := deps.GymStore.GetByID(ctx, query.GymID)
	if err != nil {
		return DueReminder{}, fmt.Errorf("load gym: %w", err)
	}
	lastSeen, err := deps.CheckInStore.LastCheckIns(ctx, query.GymID)
	if err != nil {
		return DueReminder{}, fmt.Errorf("load last check-ins: %w", err)
	}

	mf := factsFor(g, m, lastSeen[m.ID], query.Today)
	kind := query.Kind
	if kind == "" {
		policy := query.Policy
		if policy == nil {
			policy = reminder.DefaultPolicy
		}
		var ok bool
		if kind, ok = policy.Select(mf.facts); !ok {
			return DueReminder{}, ErrNoReminderDue
		}
	}
	return buildReminder(m, mf, kind)
}
