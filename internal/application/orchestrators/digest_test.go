package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"repcount/internal/adapters/email"
	memberStore "repcount/internal/adapters/storage/member"
	"repcount/internal/adapters/telegram"
	"repcount/internal/application/projections"
	"repcount/internal/domain/attendance"
	"repcount/internal/domain/gym"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/member"
	"repcount/internal/domain/outbox"
	"repcount/internal/domain/reminderlog"
)

var digestGym = gym.Gym{
	ID:             "gym-1",
	Name:           "FitZone",
	Slug:           "fitzone",
	OwnerAccountID: "a1",
	OwnerEmail:     "owner@fitzone.in",
	TelegramChatID: -1001,
	UPIID:          "fitzone@okaxis",
}

// digestMembers implements the projection member store over a fixed slice.
type digestMembers struct {
	members []member.Member
}

func (s *digestMembers) GetByID(_ context.Context, id string) (member.Member, error) {
	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return member.Member{}, errors.New("not found")
}

func (s *digestMembers) GetByAccountID(context.Context, string) (member.Member, error) {
	return member.Member{}, errors.New("not found")
}

func (s *digestMembers) List(_ context.Context, f memberStore.ListFilter) ([]member.Member, error) {
	var out []member.Member
	for _, m := range s.members {
		if m.GymID == f.GymID && m.Archived == f.Archived {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *digestMembers) Count(ctx context.Context, f memberStore.ListFilter) (int, error) {
	ms, _ := s.List(ctx, f)
	return len(ms), nil
}

// digestCheckIns reports every member as seen today.
type digestCheckIns struct{}

func (digestCheckIns) GetByMemberAndDate(context.Context, string, lifecycle.Date) (attendance.CheckIn, error) {
	return attendance.CheckIn{}, errors.New("not found")
}

func (digestCheckIns) ListByMember(context.Context, string, int) ([]attendance.CheckIn, error) {
	return nil, nil
}

func (digestCheckIns) LastCheckIns(context.Context, string) (map[string]lifecycle.Date, error) {
	return map[string]lifecycle.Date{"m-1": clockDay, "m-2": clockDay, "m-3": clockDay}, nil
}

func (digestCheckIns) CountBetween(context.Context, string, lifecycle.Date, lifecycle.Date) (int, error) {
	return 0, nil
}

type digestSent struct{}

func (digestSent) ListByGymAndDate(context.Context, string, lifecycle.Date) ([]reminderlog.Entry, error) {
	return nil, nil
}

func digestDeps(g gym.Gym, store *fakeOutboxStore, ms ...member.Member) QueueReminderDigestDeps {
	gyms := newFakeGymStore(g)
	return QueueReminderDigestDeps{
		GymStore: gyms,
		Reminders: projections.GetDueRemindersDeps{
			MemberStore:      &digestMembers{members: ms},
			GymStore:         gyms,
			CheckInStore:     digestCheckIns{},
			ReminderLogStore: digestSent{},
		},
		OutboxStore: store,
		Now:         clockNow,
	}
}

func dueMembers() []member.Member {
	renewal := seededMember("m-1", clockDay.AddDays(3))
	renewal.Name = "Rahul <b>Sharma</b>"
	overdue := seededMember("m-2", clockDay.AddDays(-5))
	overdue.Name = "Priya_Patel"
	overdue.Phone = "919000000002"
	fine := seededMember("m-3", clockDay.AddDays(40))
	fine.Phone = "919000000003"
	return []member.Member{renewal, overdue, fine}
}

// TestExecuteQueueReminderDigest tests both channels and the once-per-day ID.
func TestExecuteQueueReminderDigest(t *testing.T) {
	store := newFakeOutboxStore()
	deps := digestDeps(digestGym, store, dueMembers()...)
	in := QueueReminderDigestInput{GymID: "gym-1", Today: clockDay}

	res, err := ExecuteQueueReminderDigest(context.Background(), in, deps)
	if err != nil {
		t.Fatalf("ExecuteQueueReminderDigest() error = %v", err)
	}
	if res.Reminders != 2 || len(res.Queued) != 2 {
		t.Fatalf("result = %+v", res)
	}

	mailEntry := store.entries[DigestEntryID("gym-1", clockDay, outbox.ActionTypeDigestEmail)]
	var mail DigestEmailPayload
	if err := json.Unmarshal([]byte(mailEntry.Payload), &mail); err != nil {
		t.Fatalf("email payload: %v", err)
	}
	if mail.To != "owner@fitzone.in" || mail.Subject != "FitZone: 2 reminders for 17 Oct 2026" {
		t.Errorf("email = %+v", mail)
	}
	if !strings.Contains(mail.HTML, `href="https://wa.me/919876543210?text=`) {
		t.Errorf("email HTML missing wa.me link:\n%s", mail.HTML)
	}
	if strings.Contains(mail.HTML, "<b>Sharma</b>") || !strings.Contains(mail.HTML, "Priya_Patel") {
		t.Errorf("member names not escaped:\n%s", mail.HTML)
	}
	if strings.Index(mail.HTML, "Renewal due") > strings.Index(mail.HTML, "Payment overdue") {
		t.Errorf("sections out of order:\n%s", mail.HTML)
	}

	tgEntry := store.entries[DigestEntryID("gym-1", clockDay, outbox.ActionTypeDigestTelegram)]
	var tgPayload DigestTelegramPayload
	if err := json.Unmarshal([]byte(tgEntry.Payload), &tgPayload); err != nil {
		t.Fatalf("telegram payload: %v", err)
	}
	if tgPayload.ChatID != -1001 || !strings.Contains(tgPayload.HTML, "Rahul &lt;b&gt;Sharma&lt;/b&gt;") || !strings.Contains(tgPayload.HTML, "5 din overdue") {
		t.Errorf("telegram payload = %+v", tgPayload)
	}

	res, err = ExecuteQueueReminderDigest(context.Background(), in, deps)
	if err != nil {
		t.Fatalf("second queue error = %v", err)
	}
	if len(res.Queued) != 0 || res.AlreadyQueued != 2 || len(store.entries) != 2 {
		t.Errorf("second queue = %+v, entries = %d", res, len(store.entries))
	}
}

// TestExecuteQueueReminderDigest_NothingDue tests that quiet days queue nothing.
func TestExecuteQueueReminderDigest_NothingDue(t *testing.T) {
	store := newFakeOutboxStore()
	fine := seededMember("m-3", clockDay.AddDays(40))
	res, err := ExecuteQueueReminderDigest(context.Background(), QueueReminderDigestInput{GymID: "gym-1", Today: clockDay}, digestDeps(digestGym, store, fine))
	if err != nil || res.Reminders != 0 || len(store.entries) != 0 {
		t.Errorf("result = %+v, %v, entries = %d", res, err, len(store.entries))
	}
}

// TestExecuteQueueReminderDigest_EmailOnly tests gyms without Telegram.
func TestExecuteQueueReminderDigest_EmailOnly(t *testing.T) {
	g := digestGym
	g.TelegramChatID = 0
	store := newFakeOutboxStore()
	res, err := ExecuteQueueReminderDigest(context.Background(), QueueReminderDigestInput{GymID: "gym-1", Today: clockDay}, digestDeps(g, store, dueMembers()...))
	if err != nil || len(res.Queued) != 1 {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if e := store.entries[res.Queued[0]]; e.ActionType != outbox.ActionTypeDigestEmail {
		t.Errorf("queued %s", e.ActionType)
	}
}

// TestDigestEntryID tests determinism across days and channels.
func TestDigestEntryID(t *testing.T) {
	a := DigestEntryID("gym-1", clockDay, outbox.ActionTypeDigestEmail)
	if a != DigestEntryID("gym-1", clockDay, outbox.ActionTypeDigestEmail) {
		t.Error("ID not deterministic")
	}
	if a == DigestEntryID("gym-1", clockDay.AddDays(1), outbox.ActionTypeDigestEmail) ||
		a == DigestEntryID("gym-1", clockDay, outbox.ActionTypeDigestTelegram) ||
		a == DigestEntryID("gym-2", clockDay, outbox.ActionTypeDigestEmail) {
		t.Error("ID collision")
	}
}

type flakyNotifier struct {
	failures int
	calls    int
}

func (n *flakyNotifier) Notify(_ context.Context, chatID int64, _ string, skip int) (string, int, error) {
	n.calls++
	if n.calls <= n.failures {
		return "", skip, errors.New("telegram unavailable")
	}
	return "42", skip + 1, nil
}

// TestOutboxProcessor_DeliversDigests tests delivery through both executors.
func TestOutboxProcessor_DeliversDigests(t *testing.T) {
	store := newFakeOutboxStore()
	if _, err := ExecuteQueueReminderDigest(context.Background(), QueueReminderDigestInput{GymID: "gym-1", Today: clockDay}, digestDeps(digestGym, store, dueMembers()...)); err != nil {
		t.Fatalf("queue: %v", err)
	}

	sender := email.NewNoopSender()
	notifier := &flakyNotifier{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeDigestEmail:    &DigestEmailExecutor{Sender: sender},
		outbox.ActionTypeDigestTelegram: &DigestTelegramExecutor{Notifier: notifier},
	})
	p.now = clockNow

	if err := p.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0].To[0] != "owner@fitzone.in" || sent[0].Tags["kind"] != "digest" {
		t.Errorf("sent = %+v", sent)
	}
	for _, e := range store.entries {
		if e.Status != outbox.StatusDone || e.ExternalID == "" {
			t.Errorf("entry %s = %+v", e.ActionType, e)
		}
	}
}

// TestOutboxProcessor_RetriesWithBackoff tests that failed entries wait out the backoff.
func TestOutboxProcessor_RetriesWithBackoff(t *testing.T) {
	store := newFakeOutboxStore()
	entry := outbox.Entry{
		ID:          "o1",
		ActionType:  outbox.ActionTypeDigestTelegram,
		Payload:     `{"chat_id":-1001,"html":"hi"}`,
		Status:      outbox.StatusPending,
		MaxAttempts: 3,
		CreatedAt:   clock,
	}
	store.Create(context.Background(), entry)

	notifier := &flakyNotifier{failures: 1}
	now := clock
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeDigestTelegram: &DigestTelegramExecutor{Notifier: notifier},
	})
	p.now = func() time.Time { return now }

	p.ProcessPending(context.Background())
	if e := store.entries["o1"]; e.Status != outbox.StatusRetrying || e.Attempts != 1 || e.ErrorMessage == "" {
		t.Fatalf("after failure = %+v", e)
	}

	now = clock.Add(10 * time.Second)
	p.ProcessPending(context.Background())
	if notifier.calls != 1 {
		t.Fatalf("retried before backoff elapsed: %d calls", notifier.calls)
	}

	now = clock.Add(2 * time.Minute)
	p.ProcessPending(context.Background())
	if e := store.entries["o1"]; e.Status != outbox.StatusDone || e.ExternalID != "42" {
		t.Errorf("after retry = %+v", e)
	}
}

// TestOutboxProcessor_BackoffDoesNotStarveNewEntries fills a whole batch
// with entries waiting out their backoff ahead of a fresh one.
func TestOutboxProcessor_BackoffDoesNotStarveNewEntries(t *testing.T) {
	store := newFakeOutboxStore()
	for i := range 10 {
		e := outbox.Entry{
			ID: fmt.Sprintf("old-%d", i), ActionType: outbox.ActionTypeDigestTelegram, Payload: `{"chat_id":-1001,"html":"hi"}`,
			Status: outbox.StatusPending, MaxAttempts: 5, CreatedAt: clock.Add(time.Duration(i) * time.Second),
		}
		e.MarkAttempt(clock)
		e.MarkFailed(errors.New("telegram unavailable"))
		e.ScheduleRetry(time.Minute, time.Hour)
		store.Create(context.Background(), e)
	}
	store.Create(context.Background(), outbox.Entry{
		ID: "fresh", ActionType: outbox.ActionTypeDigestTelegram, Payload: `{"chat_id":-1001,"html":"hi"}`,
		Status: outbox.StatusPending, MaxAttempts: 5, CreatedAt: clock.Add(time.Minute),
	})

	notifier := &flakyNotifier{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeDigestTelegram: &DigestTelegramExecutor{Notifier: notifier},
	})
	p.now = func() time.Time { return clock.Add(time.Minute + time.Second) }

	if err := p.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if e := store.entries["fresh"]; e.Status != outbox.StatusDone {
		t.Errorf("fresh entry = %+v, want delivered", e)
	}
	if notifier.calls != 1 {
		t.Errorf("calls = %d, want only the fresh entry", notifier.calls)
	}
}

// partialNotifier delivers up to perCall chunks of a three-chunk digest
// per call, failing when it stops short.
type partialNotifier struct {
	perCall int
	skips   []int
}

func (n *partialNotifier) Notify(_ context.Context, _ int64, _ string, skip int) (string, int, error) {
	n.skips = append(n.skips, skip)
	delivered := min(skip+n.perCall, 3)
	if delivered < 3 {
		return "", delivered, errors.New("telegram 502")
	}
	return "77", delivered, nil
}

// TestOutboxProcessor_ResumesSplitDigest tests that a retry skips the
// chunks an earlier attempt already delivered.
func TestOutboxProcessor_ResumesSplitDigest(t *testing.T) {
	store := newFakeOutboxStore()
	store.Create(context.Background(), outbox.Entry{
		ID: "o1", ActionType: outbox.ActionTypeDigestTelegram, Payload: `{"chat_id":-1001,"html":"long"}`,
		Status: outbox.StatusPending, MaxAttempts: 3, CreatedAt: clock,
	})
	notifier := &partialNotifier{perCall: 2}
	now := clock
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeDigestTelegram: &DigestTelegramExecutor{Notifier: notifier},
	})
	p.now = func() time.Time { return now }

	p.ProcessPending(context.Background())
	if e := store.entries["o1"]; e.Status != outbox.StatusRetrying || e.PartsDelivered != 2 {
		t.Fatalf("after partial send = %+v", e)
	}

	now = clock.Add(time.Hour)
	p.ProcessPending(context.Background())
	if e := store.entries["o1"]; e.Status != outbox.StatusDone || e.ExternalID != "77" || e.PartsDelivered != 3 {
		t.Errorf("after retry = %+v", e)
	}
	if len(notifier.skips) != 2 || notifier.skips[0] != 0 || notifier.skips[1] != 2 {
		t.Errorf("skips = %v, want [0 2]", notifier.skips)
	}
}

// TestOutboxProcessor_UnknownAction tests that unroutable entries are abandoned.
func TestOutboxProcessor_UnknownAction(t *testing.T) {
	store := newFakeOutboxStore()
	store.Create(context.Background(), outbox.Entry{ID: "o1", ActionType: "sms", Payload: "{}", Status: outbox.StatusPending, CreatedAt: clock})
	p := NewOutboxProcessor(store, map[string]ActionExecutor{})
	p.now = clockNow

	p.ProcessPending(context.Background())
	if e := store.entries["o1"]; e.Status != outbox.StatusAbandoned {
		t.Errorf("entry = %+v", e)
	}
	if err := p.ProcessSingle(context.Background(), "o1"); err == nil {
		t.Error("ProcessSingle on abandoned entry succeeded")
	}
}

// TestExecuteQueueAllDigests tests the sweep over every gym.
func TestExecuteQueueAllDigests(t *testing.T) {
	store := newFakeOutboxStore()
	deps := digestDeps(digestGym, store, dueMembers()...)
	gyms := deps.GymStore.(*fakeGymStore)
	gyms.gyms["gym-quiet"] = gym.Gym{ID: "gym-quiet", Name: "Quiet", Slug: "quiet", OwnerEmail: "q@x.in"}

	n, err := ExecuteQueueAllDigests(context.Background(), clockDay, DigestSweepDeps{Gyms: gyms, Digest: deps})
	if err != nil || n != 2 {
		t.Errorf("queued = %d, %v; want 2", n, err)
	}
}

var (
	_ telegram.Notifier = (*flakyNotifier)(nil)
	_ telegram.Notifier = (*partialNotifier)(nil)
	_ ResumableExecutor = (*DigestTelegramExecutor)(nil)
)
