package orchestrators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"repcount/internal/adapters/storage"
	"repcount/internal/application/projections"
	"repcount/internal/domain/gym"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/outbox"
	"repcount/internal/domain/reminder"
)

// digestMarkdown renders owner digests; raw HTML in member names stays escaped.
var digestMarkdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// kindHeadings titles each digest section, in Kinds order.
var kindHeadings = map[reminder.Kind]string{
	reminder.KindRenewal:  "Renewal due",
	reminder.KindOverdue:  "Payment overdue",
	reminder.KindInactive: "Not seen lately",
	reminder.KindWelcome:  "New members",
	reminder.KindBirthday: "Birthdays",
}

// OutboxCreator defines the outbox store interface needed to enqueue digests.
type OutboxCreator interface {
	Create(ctx context.Context, e outbox.Entry) error
}

// DigestEmailPayload is the outbox payload for ActionTypeDigestEmail.
type DigestEmailPayload struct {
	GymID   string `json:"gym_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// DigestTelegramPayload is the outbox payload for ActionTypeDigestTelegram.
type DigestTelegramPayload struct {
	ChatID int64  `json:"chat_id"`
	HTML   string `json:"html"`
}

// QueueReminderDigestInput carries input for the orchestrator.
type QueueReminderDigestInput struct {
	GymID string
	Today lifecycle.Date
}

// QueueReminderDigestResult reports what was enqueued.
type QueueReminderDigestResult struct {
	Reminders     int
	Queued        []string // outbox entry IDs created by this call
	AlreadyQueued int
}

// QueueReminderDigestDeps holds dependencies for QueueReminderDigest.
type QueueReminderDigestDeps struct {
	GymStore interface {
		GetByID(context.Context, string) (gym.Gym, error)
	}
	Reminders   projections.GetDueRemindersDeps
	OutboxStore OutboxCreator
	Now         func() time.Time
}

// ExecuteQueueReminderDigest enqueues today's reminder digest for the owner
// on every channel the gym has configured.
// PRE: GymID and Today are set
// POST: at most one outbox entry per (gym, day, channel); nothing is queued
// when no reminders are due
func ExecuteQueueReminderDigest(ctx context.Context, input QueueReminderDigestInput, deps QueueReminderDigestDeps) (QueueReminderDigestResult, error) {
	g, err := deps.GymStore.GetByID(ctx, input.GymID)
	if err != nil {
		return QueueReminderDigestResult{}, err
	}
	due, err := projections.QueryGetDueReminders(ctx, projections.GetDueRemindersQuery{GymID: g.ID, Today: input.Today}, deps.Reminders)
	if err != nil {
		return QueueReminderDigestResult{}, fmt.Errorf("due reminders: %w", err)
	}

	result := QueueReminderDigestResult{Reminders: len(due.Reminders)}
	if len(due.Reminders) == 0 {
		return result, nil
	}

	var entries []outbox.Entry
	now := deps.Now()
	if g.OwnerEmail != "" {
		body, err := renderDigestHTML(g, input.Today, due.Reminders)
		if err != nil {
			return result, err
		}
		e, err := digestEntry(g.ID, input.Today, outbox.ActionTypeDigestEmail, DigestEmailPayload{
			GymID:   g.ID,
			To:      g.OwnerEmail,
			Subject: digestSubject(g, input.Today, len(due.Reminders)),
			HTML:    body,
			Text:    renderDigestText(g, input.Today, due.Reminders),
		}, now)
		if err != nil {
			return result, err
		}
		entries = append(entries, e)
	}
	if g.TelegramChatID != 0 {
		e, err := digestEntry(g.ID, input.Today, outbox.ActionTypeDigestTelegram, DigestTelegramPayload{
			ChatID: g.TelegramChatID,
			HTML:   renderDigestTelegram(g, input.Today, due.Reminders),
		}, now)
		if err != nil {
			return result, err
		}
		entries = append(entries, e)
	}

	for _, e := range entries {
		if err := deps.OutboxStore.Create(ctx, e); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				result.AlreadyQueued++
				continue
			}
			return result, fmt.Errorf("queue %s: %w", e.ActionType, err)
		}
		result.Queued = append(result.Queued, e.ID)
	}

	slog.Info("digest_event", "event", "digest_queued", "gym_id", g.ID, "today", input.Today.String(),
		"reminders", result.Reminders, "queued", len(result.Queued), "already_queued", result.AlreadyQueued)
	return result, nil
}

// DigestEntryID is the outbox ID for a gym's digest on a day and channel.
// INVARIANT: same inputs, same ID
func DigestEntryID(gymID string, day lifecycle.Date, actionType string) string {
	name := "repcount/digest/" + gymID + "/" + day.String() + "/" + actionType
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func digestEntry(gymID string, day lifecycle.Date, actionType string, payload any, now time.Time) (outbox.Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return outbox.Entry{}, fmt.Errorf("marshal %s payload: %w", actionType, err)
	}
	e := outbox.Entry{
		ID:          DigestEntryID(gymID, day, actionType),
		GymID:       gymID,
		ActionType:  actionType,
		Payload:     string(raw),
		Status:      outbox.StatusPending,
		MaxAttempts: outbox.DefaultMaxAttempts,
		CreatedAt:   now,
	}
	return e, e.Validate()
}

func digestSubject(g gym.Gym, day lifecycle.Date, n int) string {
	noun := "reminders"
	if n == 1 {
		noun = "reminder"
	}
	return fmt.Sprintf("%s: %d %s for %s", g.Name, n, noun, lifecycle.FormatDate(day))
}

// groupByKind buckets reminders by kind, keeping each kind's order.
func groupByKind(due []projections.DueReminder) map[reminder.Kind][]projections.DueReminder {
	groups := make(map[reminder.Kind][]projections.DueReminder)
	for _, r := range due {
		groups[r.Kind] = append(groups[r.Kind], r)
	}
	return groups
}

func reminderDetail(r projections.DueReminder) string {
	switch {
	case r.DaysLeft < 0:
		return fmt.Sprintf("%d din overdue", -r.DaysLeft)
	case r.Kind == reminder.KindRenewal:
		return fmt.Sprintf("%d din baaki", r.DaysLeft)
	}
	return string(r.Status)
}

func renderDigestMarkdown(g gym.Gym, day lifecycle.Date, due []projections.DueReminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s: aaj ke reminders (%s)\n\n", escapeMarkdown(g.Name), lifecycle.FormatDate(day))
	fmt.Fprintf(&b, "**%d** members ko WhatsApp message bhejna hai. Naam par tap karke chat kholiye.\n", len(due))

	groups := groupByKind(due)
	for _, kind := range reminder.Kinds {
		rs := groups[kind]
		if len(rs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s (%d)\n\n", kindHeadings[kind], len(rs))
		for _, r := range rs {
			fmt.Fprintf(&b, "- [%s](%s) · %s · %s\n", escapeMarkdown(r.MemberName), r.Link, r.Phone, reminderDetail(r))
		}
	}
	return b.String()
}

func renderDigestHTML(g gym.Gym, day lifecycle.Date, due []projections.DueReminder) (string, error) {
	var buf bytes.Buffer
	if err := digestMarkdown.Convert([]byte(renderDigestMarkdown(g, day, due)), &buf); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

func renderDigestText(g gym.Gym, day lifecycle.Date, due []projections.DueReminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: aaj ke reminders (%s)\n", g.Name, lifecycle.FormatDate(day))
	groups := groupByKind(due)
	for _, kind := range reminder.Kinds {
		for _, r := range groups[kind] {
			fmt.Fprintf(&b, "\n%s (%s, %s)\n%s\n", r.MemberName, kindHeadings[kind], r.Phone, r.Link)
		}
	}
	return b.String()
}

// renderDigestTelegram uses the small tag set the Bot API accepts.
func renderDigestTelegram(g gym.Gym, day lifecycle.Date, due []projections.DueReminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>: aaj ke reminders (%s)\n", html.EscapeString(g.Name), lifecycle.FormatDate(day))
	groups := groupByKind(due)
	for _, kind := range reminder.Kinds {
		rs := groups[kind]
		if len(rs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n<b>%s</b>\n", kindHeadings[kind])
		for _, r := range rs {
			fmt.Fprintf(&b, "• <a href=\"%s\">%s</a> · %s\n", html.EscapeString(r.Link), html.EscapeString(r.MemberName), reminderDetail(r))
		}
	}
	return b.String()
}

// escapeMarkdown backslash-escapes ASCII punctuation so names render literally.
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune("\\`*_{}[]()<>#+-.!|~", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
