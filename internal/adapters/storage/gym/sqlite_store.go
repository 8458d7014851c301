package gym

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"repcount/internal/adapters/storage"
	domain "repcount/internal/domain/gym"
)

const columns = "id, name, slug, owner_account_id, owner_email, telegram_chat_id, upi_id, app_link, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new gym store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGym(row scanner) (domain.Gym, error) {
	var g domain.Gym
	var createdAt string
	err := row.Scan(&g.ID, &g.Name, &g.Slug, &g.OwnerAccountID, &g.OwnerEmail, &g.TelegramChatID, &g.UPIID, &g.AppLink, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Gym{}, fmt.Errorf("gym not found: %w", storage.ErrNotFound)
	}
	if err != nil {
		return domain.Gym{}, err
	}
	g.CreatedAt, _ = storage.ParseTime(createdAt)
	return g, nil
}

// GetByID retrieves a Gym by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Gym, error) {
	return scanGym(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM gym WHERE id = ?", id))
}

// GetBySlug retrieves a Gym by its URL slug.
func (s *SQLiteStore) GetBySlug(ctx context.Context, slug string) (domain.Gym, error) {
	return scanGym(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM gym WHERE slug = ?", slug))
}

// Save persists a Gym to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, g domain.Gym) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gym (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, slug=excluded.slug, owner_account_id=excluded.owner_account_id,
		   owner_email=excluded.owner_email, telegram_chat_id=excluded.telegram_chat_id,
		   upi_id=excluded.upi_id, app_link=excluded.app_link`,
		g.ID, g.Name, g.Slug, g.OwnerAccountID, g.OwnerEmail, g.TelegramChatID, g.UPIID, g.AppLink,
		storage.FormatTime(g.CreatedAt))
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("gym slug %s: %w", g.Slug, storage.ErrConflict)
	}
	return err
}

// List returns every gym ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Gym, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM gym ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Gym
	for rows.Next() {
		g, err := scanGym(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, g)
	}
	return results, rows.Err()
}
