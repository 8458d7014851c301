package outbox

import (
	"context"
	"time"

	domain "repcount/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or an error wrapping storage.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Create inserts a new entry.
	// POST: Returns an error wrapping storage.ErrConflict when the ID is taken
	Create(ctx context.Context, e domain.Entry) error
	// Save persists an outbox entry to the database.
	// PRE: entity has been validated
	// POST: Entity is persisted (insert or update)
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries that still need delivery (pending or
	// retrying) and whose next attempt is due at now.
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by created_at
	ListPending(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)

	// ListForGym returns one gym's entries in the given state. StatusPending
	// also matches retrying entries.
	// PRE: limit > 0; status is StatusPending or StatusFailed
	// POST: Returns up to limit entries, newest first
	ListForGym(ctx context.Context, gymID, status string, limit int) ([]domain.Entry, error)
}
