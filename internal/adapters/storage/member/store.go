package member

import (
	"context"

	"repcount/internal/domain/lifecycle"
	domain "repcount/internal/domain/member"
)

// Store persists Member state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	GetByPhone(ctx context.Context, gymID, phone string) (domain.Member, error)
	GetByAccountID(ctx context.Context, accountID string) (domain.Member, error)
	Save(ctx context.Context, value domain.Member) error
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations. Status is
// resolved against Today, since membership status is never stored.
type ListFilter struct {
	GymID    string
	Archived bool // list archived members instead of current ones
	Status   lifecycle.Status
	Today    lifecycle.Date
	Search   string
	Sort     string
	Dir      string
	Limit    int
	Offset   int
}
