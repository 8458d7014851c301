package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"repcount/internal/adapters/storage"
	domain "repcount/internal/domain/attendance"
	"repcount/internal/domain/lifecycle"
)

const columns = "id, member_id, gym_id, checked_in_at, date, method"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new check-in store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(row scanner) (domain.CheckIn, error) {
	var c domain.CheckIn
	var at string
	err := row.Scan(&c.ID, &c.MemberID, &c.GymID, &at, &c.Date, &c.Method)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CheckIn{}, fmt.Errorf("check-in not found: %w", storage.ErrNotFound)
	}
	if err != nil {
		return domain.CheckIn{}, err
	}
	if c.CheckedInAt, err = storage.ParseTime(at); err != nil {
		return domain.CheckIn{}, fmt.Errorf("check-in %s: bad timestamp %q: %w", c.ID, at, err)
	}
	return c, nil
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Save inserts a check-in. Check-ins are never edited.
// PRE: c has been validated
// POST: row inserted, or an error wrapping storage.ErrConflict for a second visit that day
func (s *SQLiteStore) Save(ctx context.Context, c domain.CheckIn) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO check_in ("+columns+") VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, c.MemberID, c.GymID, storage.FormatTime(c.CheckedInAt), c.Date, c.Method)
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("check-in for %s on %s: %w", c.MemberID, c.Date, storage.ErrConflict)
	}
	return err
}

// GetByMemberAndDate returns the member's check-in on date.
func (s *SQLiteStore) GetByMemberAndDate(ctx context.Context, memberID string, date lifecycle.Date) (domain.CheckIn, error) {
	return scanCheckIn(s.db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM check_in WHERE member_id = ? AND date = ?", memberID, date))
}

// ListByGymAndDate returns the gym's check-ins on date, earliest first.
func (s *SQLiteStore) ListByGymAndDate(ctx context.Context, gymID string, date lifecycle.Date) ([]domain.CheckIn, error) {
	return s.list(ctx, "SELECT "+columns+" FROM check_in WHERE gym_id = ? AND date = ? ORDER BY checked_in_at", gymID, date)
}

// ListByMember returns the member's most recent check-ins.
// PRE: limit > 0
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string, limit int) ([]domain.CheckIn, error) {
	return s.list(ctx, "SELECT "+columns+" FROM check_in WHERE member_id = ? ORDER BY date DESC LIMIT ?", memberID, limit)
}

// LastCheckIns maps each member of gymID to their latest check-in day.
func (s *SQLiteStore) LastCheckIns(ctx context.Context, gymID string) (map[string]lifecycle.Date, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id, MAX(date) FROM check_in WHERE gym_id = ? GROUP BY member_id", gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	last := make(map[string]lifecycle.Date)
	for rows.Next() {
		var memberID string
		var d lifecycle.Date
		if err := rows.Scan(&memberID, &d); err != nil {
			return nil, err
		}
		last[memberID] = d
	}
	return last, rows.Err()
}

// CountBetween counts check-ins with from <= date <= to.
func (s *SQLiteStore) CountBetween(ctx context.Context, gymID string, from, to lifecycle.Date) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM check_in WHERE gym_id = ? AND date >= ? AND date <= ?", gymID, from, to).Scan(&n)
	return n, err
}
