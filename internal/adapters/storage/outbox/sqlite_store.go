package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"repcount/internal/adapters/storage"
	domain "repcount/internal/domain/outbox"
)

const columns = "id, gym_id, action_type, payload, status, attempts, max_attempts, last_attempted_at, next_attempt_at, parts_delivered, created_at, external_id, error_message"

// SQLiteStore implements the outbox Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM outbox WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, fmt.Errorf("outbox entry not found: %w", storage.ErrNotFound)
	}
	return e, err
}

// Create inserts an entry and never overwrites an existing one, so callers
// with deterministic IDs enqueue at most once.
func (s *SQLiteStore) Create(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GymID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		storage.FormatTime(e.LastAttemptedAt), storage.FormatTime(e.NextAttemptAt), e.PartsDelivered, storage.FormatTime(e.CreatedAt),
		e.ExternalID, e.ErrorMessage)
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("outbox entry %s: %w", e.ID, storage.ErrConflict)
	}
	return err
}

// Save persists an outbox entry to the database.
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, next_attempt_at=excluded.next_attempt_at,
		   parts_delivered=excluded.parts_delivered, external_id=excluded.external_id,
		   error_message=excluded.error_message`,
		e.ID, e.GymID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		storage.FormatTime(e.LastAttemptedAt), storage.FormatTime(e.NextAttemptAt), e.PartsDelivered, storage.FormatTime(e.CreatedAt),
		e.ExternalID, e.ErrorMessage)
	return err
}

// ListPending returns due entries that still need delivery. An empty
// next_attempt_at sorts before every timestamp, so fresh entries are due.
func (s *SQLiteStore) ListPending(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"SELECT "+columns+" FROM outbox WHERE status IN (?, ?) AND next_attempt_at <= ? ORDER BY created_at ASC LIMIT ?",
		domain.StatusPending, domain.StatusRetrying, storage.FormatTime(now), limit)
}

// ListForGym returns one gym's pending or failed entries.
func (s *SQLiteStore) ListForGym(ctx context.Context, gymID, status string, limit int) ([]domain.Entry, error) {
	statuses := []any{status, status}
	if status == domain.StatusPending {
		statuses = []any{domain.StatusPending, domain.StatusRetrying}
	}
	return s.list(ctx,
		"SELECT "+columns+" FROM outbox WHERE gym_id = ? AND status IN (?, ?) ORDER BY created_at DESC LIMIT ?",
		append(append([]any{gymID}, statuses...), limit)...)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.Entry, error) {
	var e domain.Entry
	var createdAt, lastAttemptedAt, nextAttemptAt string
	err := row.Scan(&e.ID, &e.GymID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &nextAttemptAt, &e.PartsDelivered, &createdAt, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	e.CreatedAt, _ = storage.ParseTime(createdAt)
	e.LastAttemptedAt, _ = storage.ParseTime(lastAttemptedAt)
	e.NextAttemptAt, _ = storage.ParseTime(nextAttemptAt)
	return e, nil
}
