package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"repcount/internal/domain/account"
)

// AccountStoreForLogin defines the store interface needed by Login.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries what the session needs after a successful login.
type LoginResult struct {
	AccountID string
	GymID     string
	Email     string
	Role      string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStoreForLogin
	Now          func() time.Time
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
)

// ExecuteLogin checks an owner's or member's credentials.
// PRE: none; blank input is treated as bad credentials
// POST: on a wrong password the failure is counted and the account may lock;
// on success any earlier failures are cleared
// INVARIANT: unknown email and wrong password return the same error
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := deps.Now()

	acct, err := deps.AccountStore.GetByEmail(ctx, email)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", maskEmail(email), "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := checkPasswordWithLockout(ctx, deps.AccountStore, &acct, input.Password, now); err != nil {
		if errors.Is(err, ErrAccountLocked) {
			return LoginResult{}, err
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	slog.Info("auth_event", "event", "login_success", "account_id", acct.ID, "gym_id", acct.GymID, "role", acct.Role)
	return LoginResult{
		AccountID: acct.ID,
		GymID:     acct.GymID,
		Email:     acct.Email,
		Role:      acct.Role,
	}, nil
}

type accountSaver interface {
	Save(ctx context.Context, a account.Account) error
}

// checkPasswordWithLockout applies the lockout policy around a password
// check and persists the failure count. It returns ErrAccountLocked,
// account.ErrWrongPassword or nil.
func checkPasswordWithLockout(ctx context.Context, store accountSaver, acct *account.Account, password string, now time.Time) error {
	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "account_id", acct.ID, "locked_until", acct.LockedUntil)
		return ErrAccountLocked
	}
	if err := acct.CheckPassword(password); err != nil {
		acct.RecordFailedLogin(now)
		if err := store.Save(ctx, *acct); err != nil {
			slog.Error("auth_event", "event", "failed_login_not_recorded", "account_id", acct.ID, "error", err)
		}
		slog.Info("auth_event", "event", "password_rejected", "account_id", acct.ID, "failed_logins", acct.FailedLogins)
		return account.ErrWrongPassword
	}
	if acct.FailedLogins > 0 || !acct.LockedUntil.IsZero() {
		acct.ResetFailedLogins()
		if err := store.Save(ctx, *acct); err != nil {
			slog.Warn("auth_event", "event", "failed_logins_not_cleared", "account_id", acct.ID, "error", err)
		}
	}
	return nil
}

// maskEmail keeps the first letter and the domain: "rahul@x.in" -> "r***@x.in".
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
