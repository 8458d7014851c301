package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"repcount/internal/domain/account"
)

// ChangePasswordInput carries input for the change-password orchestrator.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// AccountStoreForChangePassword defines the store interface needed by ChangePassword.
type AccountStoreForChangePassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	AccountStore AccountStoreForChangePassword
	Now          func() time.Time
}

var (
	ErrCurrentPasswordWrong = errors.New("current password is incorrect")
	ErrNewPasswordSame      = errors.New("new password must be different from current password")
)

// ExecuteChangePassword replaces a signed-in user's password. A wrong
// current password counts towards the same lockout as a failed login.
// PRE: AccountID is valid, both passwords are non-empty
// POST: password is updated and any lockout cleared; the caller should
// end the account's other sessions
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	if input.AccountID == "" || input.CurrentPassword == "" || input.NewPassword == "" {
		return invalid(errors.New("all fields are required"))
	}
	if input.CurrentPassword == input.NewPassword {
		return invalid(ErrNewPasswordSame)
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return err
	}
	switch err := checkPasswordWithLockout(ctx, deps.AccountStore, &acct, input.CurrentPassword, deps.Now()); {
	case errors.Is(err, account.ErrWrongPassword):
		return ErrCurrentPasswordWrong
	case err != nil:
		return err
	}

	if err := acct.SetPassword(input.NewPassword); err != nil {
		return invalid(err)
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID, "gym_id", acct.GymID)
	return nil
}
