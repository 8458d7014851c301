package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/lifecycle"
	domain "repcount/internal/domain/member"
)

const columns = "id, gym_id, account_id, name, phone, email, plan, fee, joined_on, expiry_date, birth_date, archived"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (domain.Member, error) {
	var entity domain.Member
	var accountID sql.NullString
	err := row.Scan(
		&entity.ID,
		&entity.GymID,
		&accountID,
		&entity.Name,
		&entity.Phone,
		&entity.Email,
		&entity.Plan,
		&entity.Fee,
		&entity.JoinedOn,
		&entity.ExpiryDate,
		&entity.BirthDate,
		&entity.Archived,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("member not found: %w", storage.ErrNotFound)
	}
	if err != nil {
		return domain.Member{}, err
	}
	entity.AccountID = accountID.String
	return entity, nil
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM member WHERE id = ?", id))
}

// GetByPhone retrieves a Member of gymID by normalized phone.
// PRE: phone is in 91XXXXXXXXXX form
func (s *SQLiteStore) GetByPhone(ctx context.Context, gymID, phone string) (domain.Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM member WHERE gym_id = ? AND phone = ?", gymID, phone))
}

// GetByAccountID retrieves the Member linked to a login account.
func (s *SQLiteStore) GetByAccountID(ctx context.Context, accountID string) (domain.Member, error) {
	return scanMember(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM member WHERE account_id = ?", accountID))
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update); a phone already used in the
// gym wraps storage.ErrConflict
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	var accountID any
	if entity.AccountID != "" {
		accountID = entity.AccountID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO member (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   account_id=excluded.account_id, name=excluded.name, phone=excluded.phone,
		   email=excluded.email, plan=excluded.plan, fee=excluded.fee,
		   joined_on=excluded.joined_on, expiry_date=excluded.expiry_date,
		   birth_date=excluded.birth_date, archived=excluded.archived`,
		entity.ID,
		entity.GymID,
		accountID,
		entity.Name,
		entity.Phone,
		entity.Email,
		entity.Plan,
		entity.Fee.String(),
		entity.JoinedOn,
		entity.ExpiryDate,
		entity.BirthDate,
		entity.Archived,
	)
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("member phone %s: %w", entity.Phone, storage.ErrConflict)
	}
	return err
}

// listWhereClause builds the WHERE clause and args for List/Count queries.
// Dates are stored as YYYY-MM-DD, so text comparison orders them.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE gym_id = ? AND archived = ?"
	args := []any{filter.GymID, filter.Archived}

	if filter.Status != "" {
		today := filter.Today.String()
		windowEnd := filter.Today.AddDays(lifecycle.ExpiringWindowDays).String()
		switch filter.Status {
		case lifecycle.StatusExpired:
			where += " AND expiry_date < ?"
			args = append(args, today)
		case lifecycle.StatusExpiring:
			where += " AND expiry_date >= ? AND expiry_date <= ?"
			args = append(args, today, windowEnd)
		case lifecycle.StatusActive:
			where += " AND expiry_date > ?"
			args = append(args, windowEnd)
		}
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR phone LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term)
	}
	return where, args
}

// sortClause returns a safe ORDER BY clause. Only allowed columns are accepted.
func sortClause(filter ListFilter) string {
	allowed := map[string]string{
		"name": "name", "expiry": "expiry_date",
		"joined": "joined_on", "plan": "plan",
	}
	col, ok := allowed[filter.Sort]
	if !ok {
		return " ORDER BY name ASC, id ASC"
	}
	dir := "ASC"
	if strings.EqualFold(filter.Dir, "desc") {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", id ASC"
}

// Count returns the number of members matching the filter.
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member"+where, args...).Scan(&count)
	return count, err
}

// List retrieves Members matching the filter.
// POST: Returns matching entities in sort order
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + columns + " FROM member" + where + sortClause(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		entity, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
