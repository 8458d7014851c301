package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"repcount/internal/adapters/email"
	outboxStore "repcount/internal/adapters/storage/outbox"
	"repcount/internal/adapters/telegram"
	domain "repcount/internal/domain/outbox"
)

// OutboxProcessor delivers queued digests and retries failed deliveries.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the provider's message ID and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// ResumableExecutor delivers an action in several parts and can resume
// after the parts an earlier attempt already sent.
type ResumableExecutor interface {
	// ExecuteFrom skips the first done parts. delivered is the total sent so
	// far, done included, and is valid even when err is not nil.
	ExecuteFrom(ctx context.Context, payload string, done int) (externalID string, delivered int, err error)
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 10,
		now:       time.Now,
	}
}

// ProcessPending processes pending outbox entries with retries.
// PRE: Context is valid
// POST: Up to batchSize due entries are attempted once; failed entries wait
// out their backoff and stay queued until attempts run out
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.now(), p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}

	for _, entry := range entries {
		if err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_event", "event", "process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err)
		}
	}
	return nil
}

// attempt runs the executor for entry once and persists the outcome.
func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkAbandoned()
		entry.ErrorMessage = "no executor for action type " + entry.ActionType
		slog.Warn("outbox_event", "event", "entry_abandoned", "entry_id", entry.ID, "action_type", entry.ActionType)
		return p.store.Save(ctx, entry)
	}

	entry.MarkAttempt(p.now())
	var externalID string
	var err error
	if r, ok := executor.(ResumableExecutor); ok {
		externalID, entry.PartsDelivered, err = r.ExecuteFrom(ctx, entry.Payload, entry.PartsDelivered)
	} else {
		externalID, err = executor.Execute(ctx, entry.Payload)
	}
	if err != nil {
		entry.MarkFailed(err)
		entry.ScheduleRetry(p.baseDelay, p.maxDelay)
		slog.Warn("outbox_event", "event", "action_failed", "entry_id", entry.ID, "action_type", entry.ActionType,
			"attempt", entry.Attempts, "max_attempts", entry.MaxAttempts, "parts_delivered", entry.PartsDelivered, "error", err)
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_event", "event", "action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, entry)
}

// ProcessSingle manually retries one entry, ignoring backoff.
// PRE: entryID is non-empty
// POST: Entry is attempted once and its status updated
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.IsTerminal() {
		return fmt.Errorf("entry %s is in terminal state and cannot be retried", entryID)
	}
	if _, ok := p.executors[entry.ActionType]; !ok {
		return fmt.Errorf("no executor registered for action type: %s", entry.ActionType)
	}
	return p.attempt(ctx, entry)
}

// AbandonEntry stops further delivery attempts for an entry.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	entry.MarkAbandoned()
	return p.store.Save(ctx, entry)
}

// --- Digest Email Executor ---

// DigestEmailExecutor mails owner digests.
type DigestEmailExecutor struct {
	Sender email.Sender
}

// Execute sends the digest in payload.
// PRE: payload is valid JSON matching DigestEmailPayload
// POST: returns the provider message ID
func (e *DigestEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p DigestEmailPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      []string{p.To},
		Subject: p.Subject,
		HTML:    p.HTML,
		Text:    p.Text,
		Tags:    map[string]string{"kind": "digest", "gym": p.GymID},
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// --- Digest Telegram Executor ---

// DigestTelegramExecutor posts owner digests to the gym's Telegram chat.
// A digest too long for one message is sent in chunks, and a retry only
// sends the chunks that did not go out.
type DigestTelegramExecutor struct {
	Notifier telegram.Notifier
}

// Execute posts the whole digest in payload.
func (e *DigestTelegramExecutor) Execute(ctx context.Context, payload string) (string, error) {
	id, _, err := e.ExecuteFrom(ctx, payload, 0)
	return id, err
}

// ExecuteFrom posts the digest chunks after the first done.
// PRE: payload is valid JSON matching DigestTelegramPayload
func (e *DigestTelegramExecutor) ExecuteFrom(ctx context.Context, payload string, done int) (string, int, error) {
	var p DigestTelegramPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", done, fmt.Errorf("unmarshal payload: %w", err)
	}
	return e.Notifier.Notify(ctx, p.ChatID, p.HTML, done)
}

// --- Background Worker ---

// StartBackgroundWorker periodically processes pending outbox entries.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_event", "event", "background_process_failed", "error", err)
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_event", "event", "background_worker_stopped")
				return
			}
		}
	}()
}
