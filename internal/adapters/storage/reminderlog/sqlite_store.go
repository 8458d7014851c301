package reminderlog

import (
	"context"
	"fmt"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/lifecycle"
	domain "repcount/internal/domain/reminderlog"
)

const columns = "id, gym_id, member_id, kind, sent_on, sent_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new reminder log store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts e.
// PRE: e has been validated
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reminder_log ("+columns+") VALUES (?, ?, ?, ?, ?, ?)",
		e.ID, e.GymID, e.MemberID, string(e.Kind), e.SentOn, storage.FormatTime(e.SentAt))
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("%s for %s on %s: %w", e.Kind, e.MemberID, e.SentOn, storage.ErrConflict)
	}
	return err
}

// ListByGymAndDate returns the gym's sends on date.
func (s *SQLiteStore) ListByGymAndDate(ctx context.Context, gymID string, date lifecycle.Date) ([]domain.Entry, error) {
	return s.list(ctx, "SELECT "+columns+" FROM reminder_log WHERE gym_id = ? AND sent_on = ? ORDER BY sent_at", gymID, date)
}

// ListByMember returns the member's most recent sends.
// PRE: limit > 0
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.Entry, error) {
	return s.list(ctx, "SELECT "+columns+" FROM reminder_log WHERE member_id = ? ORDER BY sent_at DESC LIMIT ?", memberID, limit)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var sentAt string
		if err := rows.Scan(&e.ID, &e.GymID, &e.MemberID, &e.Kind, &e.SentOn, &sentAt); err != nil {
			return nil, err
		}
		if e.SentAt, err = storage.ParseTime(sentAt); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
