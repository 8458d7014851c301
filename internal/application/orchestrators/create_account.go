package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	ID       string // optional; generated when empty
	GymID    string
	Email    string
	Password string
	Role     string
	// MemberID links a member login to the member record.
	MemberID string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	MemberStore  MemberStore // required only when MemberID is set
	Now          func() time.Time
	GenerateID   func() string
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount coordinates account creation.
// PRE: Valid email, password >= account.MinPasswordLength, valid role
// POST: Account created with hashed password; a linked member gets AccountID
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (account.Account, error) {
	if strings.TrimSpace(input.Email) == "" {
		return account.Account{}, invalid(account.ErrEmptyEmail)
	}

	if _, err := deps.AccountStore.GetByEmail(ctx, input.Email); err == nil {
		return account.Account{}, ErrEmailAlreadyExists
	}

	id := input.ID
	if id == "" {
		id = deps.GenerateID()
	}
	acct := account.Account{
		ID:        id,
		GymID:     input.GymID,
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Role:      input.Role,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, invalid(err)
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, invalid(err)
	}

	if input.MemberID != "" {
		if acct.Role != account.RoleMember {
			return account.Account{}, invalid(errors.New("only member accounts can be linked to a member"))
		}
		m, err := loadGymMember(ctx, deps.MemberStore, input.GymID, input.MemberID)
		if err != nil {
			return account.Account{}, err
		}
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return account.Account{}, accountSaveError(err)
		}
		m.AccountID = acct.ID
		if err := deps.MemberStore.Save(ctx, m); err != nil {
			return account.Account{}, fmt.Errorf("link member: %w", err)
		}
	} else if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, accountSaveError(err)
	}

	slog.Info("auth_event", "event", "account_created", "email", acct.Email, "role", acct.Role, "gym_id", acct.GymID)
	return acct, nil
}

func accountSaveError(err error) error {
	if errors.Is(err, storage.ErrConflict) {
		return ErrEmailAlreadyExists
	}
	return err
}

// SeedOwnerInput names the first gym and its owner login.
type SeedOwnerInput struct {
	GymName  string
	Email    string
	Password string
}

// SeedOwnerDeps holds dependencies for SeedOwner.
type SeedOwnerDeps struct {
	AccountStore AccountStoreForCreate
	GymStore     GymStore
	Now          func() time.Time
	GenerateID   func() string
}

// ExecuteSeedOwner creates a gym and its owner account if no accounts exist.
// PRE: Database is initialized
// POST: Gym and owner account created if count == 0; otherwise no change
func ExecuteSeedOwner(ctx context.Context, input SeedOwnerInput, deps SeedOwnerDeps) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	gymID, ownerID := deps.GenerateID(), deps.GenerateID()
	g, err := ExecuteCreateGym(ctx, CreateGymInput{
		ID:             gymID,
		OwnerAccountID: ownerID,
		GymSettings:    GymSettings{Name: input.GymName, OwnerEmail: input.Email},
	}, CreateGymDeps{GymStore: deps.GymStore, Now: deps.Now, GenerateID: deps.GenerateID})
	if err != nil {
		return fmt.Errorf("seed gym: %w", err)
	}

	_, err = ExecuteCreateAccount(ctx, CreateAccountInput{
		ID:       ownerID,
		GymID:    g.ID,
		Email:    input.Email,
		Password: input.Password,
		Role:     account.RoleOwner,
	}, CreateAccountDeps{AccountStore: deps.AccountStore, Now: deps.Now, GenerateID: deps.GenerateID})
	if err != nil {
		return fmt.Errorf("seed owner: %w", err)
	}

	slog.Info("auth_event", "event", "owner_seeded", "email", input.Email, "gym_id", g.ID)
	return nil
}
