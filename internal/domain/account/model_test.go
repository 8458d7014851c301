package account_test

import (
	"testing"
	"time"

	"repcount/internal/domain/account"
)

var now = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

// TestAccount_Validate tests validation of Account.
func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account account.Account
		wantErr error
	}{
		{
			name:    "valid owner account",
			account: account.Account{ID: "1", GymID: "g1", Email: "owner@fitzone.in", Role: account.RoleOwner},
		},
		{
			name:    "valid member account",
			account: account.Account{ID: "2", GymID: "g1", Email: "amit@example.com", Role: account.RoleMember},
		},
		{
			name:    "empty email",
			account: account.Account{ID: "3", GymID: "g1", Role: account.RoleOwner},
			wantErr: account.ErrEmptyEmail,
		},
		{
			name:    "invalid email no at sign",
			account: account.Account{ID: "4", GymID: "g1", Email: "not-an-email", Role: account.RoleOwner},
			wantErr: account.ErrInvalidEmail,
		},
		{
			name:    "invalid role",
			account: account.Account{ID: "5", GymID: "g1", Email: "x@fitzone.in", Role: "admin"},
			wantErr: account.ErrInvalidRole,
		},
		{
			name:    "missing gym",
			account: account.Account{ID: "6", Email: "x@fitzone.in", Role: account.RoleMember},
			wantErr: account.ErrEmptyGymID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if err != tt.wantErr {
				t.Errorf("Account.Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestAccount_SetPassword tests the SetPassword method.
func TestAccount_SetPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid password", "securepassword123", false},
		{"exactly 10 chars", "1234567890", false},
		{"empty password", "", true},
		{"too short", "short", true},
		{"9 chars", "123456789", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &account.Account{}
			err := a.SetPassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (a.PasswordHash == "" || a.PasswordHash == tt.password) {
				t.Error("SetPassword() should store a hash, not plaintext")
			}
		})
	}
}

// TestAccount_CheckPassword tests the CheckPassword method.
func TestAccount_CheckPassword(t *testing.T) {
	a := &account.Account{}
	if err := a.SetPassword("securepassword123"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}

	if err := a.CheckPassword("securepassword123"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := a.CheckPassword("wrongpassword123"); err != account.ErrWrongPassword {
		t.Errorf("wrong password error = %v", err)
	}
	if err := (&account.Account{}).CheckPassword("anypassword1234"); err == nil {
		t.Error("CheckPassword() should fail when no hash is set")
	}
}

// TestAccount_Lockout tests failed-login counting, locking and reset.
func TestAccount_Lockout(t *testing.T) {
	a := &account.Account{}
	for i := 0; i < account.MaxFailedLogins-1; i++ {
		a.RecordFailedLogin(now)
		if a.IsLocked(now) {
			t.Fatalf("account locked after %d failures", i+1)
		}
	}

	a.RecordFailedLogin(now)
	if !a.IsLocked(now) {
		t.Error("account should be locked after max failures")
	}
	if a.IsLocked(now.Add(account.LockoutDuration + time.Second)) {
		t.Error("lock should lapse after LockoutDuration")
	}

	a.ResetFailedLogins()
	if a.FailedLogins != 0 || a.IsLocked(now) {
		t.Error("account should be unlocked after reset")
	}
}

// TestAccount_HomePath tests role landing pages.
func TestAccount_HomePath(t *testing.T) {
	owner := account.Account{Role: account.RoleOwner}
	member := account.Account{Role: account.RoleMember}
	if owner.HomePath() != "/owner" || !owner.IsOwner() {
		t.Errorf("owner home = %s", owner.HomePath())
	}
	if member.HomePath() != "/member" || member.IsOwner() {
		t.Errorf("member home = %s", member.HomePath())
	}
}
