package reminderlog

import (
	"context"

	"repcount/internal/domain/lifecycle"
	domain "repcount/internal/domain/reminderlog"
)

// Store persists reminder send records.
type Store interface {
	// Save records a send.
	// POST: returns an error wrapping storage.ErrConflict when the
	// (member, kind, day) slot is already taken
	Save(ctx context.Context, e domain.Entry) error
	ListByGymAndDate(ctx context.Context, gymID string, date lifecycle.Date) ([]domain.Entry, error)
	ListByMember(ctx context.Context, memberID string, limit int) ([]domain.Entry, error)
}
