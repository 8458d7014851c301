package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/reminder"
	"repcount/internal/domain/reminderlog"
)

// ReminderLogStore defines the interface for reminder send records.
type ReminderLogStore interface {
	Save(ctx context.Context, e reminderlog.Entry) error
}

// MarkReminderSentInput carries input for the orchestrator.
type MarkReminderSentInput struct {
	GymID    string
	MemberID string
	Kind     reminder.Kind
}

// MarkReminderSentResult reports whether a new entry was written.
type MarkReminderSentResult struct {
	Entry       reminderlog.Entry
	AlreadySent bool
}

// MarkReminderSentDeps holds dependencies for MarkReminderSent.
type MarkReminderSentDeps struct {
	MemberStore      MemberStore
	ReminderLogStore ReminderLogStore
	Now              func() time.Time
	GenerateID       func() string
}

// ExecuteMarkReminderSent records that the owner sent a reminder today.
// PRE: member exists in GymID; Kind is a known template kind
// POST: exactly one log entry exists for (member, kind, IST today)
// INVARIANT: marking the same slot twice is a no-op reported as AlreadySent
func ExecuteMarkReminderSent(ctx context.Context, input MarkReminderSentInput, deps MarkReminderSentDeps) (MarkReminderSentResult, error) {
	if !input.Kind.Valid() {
		return MarkReminderSentResult{}, invalid(reminder.ErrUnknownKind)
	}
	m, err := loadGymMember(ctx, deps.MemberStore, input.GymID, input.MemberID)
	if err != nil {
		return MarkReminderSentResult{}, err
	}

	now := deps.Now()
	e := reminderlog.Entry{
		ID:       deps.GenerateID(),
		GymID:    m.GymID,
		MemberID: m.ID,
		Kind:     input.Kind,
		SentOn:   lifecycle.DateOf(now),
		SentAt:   now,
	}
	if err := e.Validate(); err != nil {
		return MarkReminderSentResult{}, invalid(err)
	}

	if err := deps.ReminderLogStore.Save(ctx, e); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return MarkReminderSentResult{Entry: e, AlreadySent: true}, nil
		}
		return MarkReminderSentResult{}, err
	}

	slog.Info("reminder_event", "event", "reminder_sent", "member_id", m.ID, "kind", string(e.Kind), "sent_on", e.SentOn.String())
	return MarkReminderSentResult{Entry: e}, nil
}
