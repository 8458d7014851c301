package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/gym"
)

// GymStore defines the interface for gym persistence.
type GymStore interface {
	GetByID(ctx context.Context, id string) (gym.Gym, error)
	GetBySlug(ctx context.Context, slug string) (gym.Gym, error)
	Save(ctx context.Context, g gym.Gym) error
}

// GymSettings are the owner-editable gym fields.
type GymSettings struct {
	Name           string
	OwnerEmail     string
	TelegramChatID int64
	UPIID          string
	AppLink        string
}

// CreateGymInput carries input for the orchestrator.
type CreateGymInput struct {
	GymSettings
	ID             string // optional; generated when empty
	OwnerAccountID string
}

// CreateGymDeps holds dependencies for CreateGym.
type CreateGymDeps struct {
	GymStore   GymStore
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteCreateGym registers a new gym.
// PRE: Name has letters or digits; OwnerAccountID is set
// POST: Gym persisted with Slug derived from Name
// INVARIANT: Slug is unique across gyms
func ExecuteCreateGym(ctx context.Context, input CreateGymInput, deps CreateGymDeps) (gym.Gym, error) {
	id := input.ID
	if id == "" {
		id = deps.GenerateID()
	}
	g := gym.Gym{
		ID:             id,
		OwnerAccountID: input.OwnerAccountID,
		CreatedAt:      deps.Now(),
	}
	applySettings(&g, input.GymSettings)
	if err := g.Validate(); err != nil {
		return gym.Gym{}, invalid(err)
	}
	if err := ensureSlugFree(ctx, deps.GymStore, g); err != nil {
		return gym.Gym{}, err
	}

	if err := saveGym(ctx, deps.GymStore, g); err != nil {
		return gym.Gym{}, err
	}
	slog.Info("gym_event", "event", "gym_created", "gym_id", g.ID, "slug", g.Slug)
	return g, nil
}

// UpdateGymInput carries input for the orchestrator.
type UpdateGymInput struct {
	GymSettings
	GymID string
}

// UpdateGymDeps holds dependencies for UpdateGym.
type UpdateGymDeps struct {
	GymStore GymStore
}

// ExecuteUpdateGym replaces a gym's settings.
// PRE: gym exists
// POST: Slug re-derived from the new Name and still unique
func ExecuteUpdateGym(ctx context.Context, input UpdateGymInput, deps UpdateGymDeps) (gym.Gym, error) {
	g, err := deps.GymStore.GetByID(ctx, input.GymID)
	if err != nil {
		return gym.Gym{}, err
	}
	applySettings(&g, input.GymSettings)
	if err := g.Validate(); err != nil {
		return gym.Gym{}, invalid(err)
	}
	if err := ensureSlugFree(ctx, deps.GymStore, g); err != nil {
		return gym.Gym{}, err
	}

	if err := saveGym(ctx, deps.GymStore, g); err != nil {
		return gym.Gym{}, err
	}
	slog.Info("gym_event", "event", "gym_updated", "gym_id", g.ID, "slug", g.Slug)
	return g, nil
}

func applySettings(g *gym.Gym, s GymSettings) {
	g.Rename(s.Name)
	g.OwnerEmail = strings.TrimSpace(s.OwnerEmail)
	g.TelegramChatID = s.TelegramChatID
	g.UPIID = strings.TrimSpace(s.UPIID)
	g.AppLink = strings.TrimSpace(s.AppLink)
}

func ensureSlugFree(ctx context.Context, store GymStore, g gym.Gym) error {
	existing, err := store.GetBySlug(ctx, g.Slug)
	switch {
	case err == nil && existing.ID != g.ID:
		return ErrSlugTaken
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("check slug: %w", err)
	}
	return nil
}

func saveGym(ctx context.Context, store GymStore, g gym.Gym) error {
	if err := store.Save(ctx, g); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}
