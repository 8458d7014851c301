package attendance

import (
	"context"

	domain "repcount/internal/domain/attendance"
	"repcount/internal/domain/lifecycle"
)

// Store persists CheckIn state.
type Store interface {
	// Save inserts a check-in.
	// POST: returns an error wrapping storage.ErrConflict when the member
	// already checked in on c.Date
	Save(ctx context.Context, c domain.CheckIn) error
	GetByMemberAndDate(ctx context.Context, memberID string, date lifecycle.Date) (domain.CheckIn, error)
	ListByGymAndDate(ctx context.Context, gymID string, date lifecycle.Date) ([]domain.CheckIn, error)
	ListByMember(ctx context.Context, memberID string, limit int) ([]domain.CheckIn, error)
	// LastCheckIns maps member ID to the most recent check-in day, for
	// members of gymID that ever checked in.
	LastCheckIns(ctx context.Context, gymID string) (map[string]lifecycle.Date, error)
	CountBetween(ctx context.Context, gymID string, from, to lifecycle.Date) (int, error)
}
