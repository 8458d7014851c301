package gym

import (
	"context"

	domain "repcount/internal/domain/gym"
)

// Store persists Gym state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Gym, error)
	GetBySlug(ctx context.Context, slug string) (domain.Gym, error)
	Save(ctx context.Context, value domain.Gym) error
	List(ctx context.Context) ([]domain.Gym, error)
}
