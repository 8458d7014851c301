package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"repcount/internal/adapters/storage"
	store "repcount/internal/adapters/storage/account"
	domain "repcount/internal/domain/account"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSQLiteStore(db)
}

// TestSQLiteStore_SaveAndGet tests lockout state and case-insensitive email lookup.
func TestSQLiteStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	a := domain.Account{ID: "a1", GymID: "g1", Email: "Owner@FitZone.in", PasswordHash: "hash", Role: domain.RoleOwner, CreatedAt: now}
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	for i := 0; i < domain.MaxFailedLogins; i++ {
		a.RecordFailedLogin(now)
	}
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	got, err := s.GetByEmail(ctx, " owner@fitzone.IN ")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != "a1" || got.GymID != "g1" || got.Email != "owner@fitzone.in" || !got.IsLocked(now) {
		t.Errorf("GetByEmail() = %+v", got)
	}
	if !got.CreatedAt.Equal(now) || !got.LockedUntil.Equal(now.Add(domain.LockoutDuration)) {
		t.Errorf("timestamps = %v, %v", got.CreatedAt, got.LockedUntil)
	}

	got.ResetFailedLogins()
	if err := s.Save(ctx, got); err != nil {
		t.Fatalf("Save() reset error = %v", err)
	}
	got, _ = s.GetByID(ctx, "a1")
	if got.IsLocked(now) || got.FailedLogins != 0 {
		t.Errorf("lock not cleared: %+v", got)
	}

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v", err)
	}
}

// TestSQLiteStore_DuplicateEmail tests that one email maps to one account.
func TestSQLiteStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now()
	if err := s.Save(ctx, domain.Account{ID: "a1", GymID: "g1", Email: "x@fitzone.in", Role: domain.RoleOwner, CreatedAt: now}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	err := s.Save(ctx, domain.Account{ID: "a2", GymID: "g1", Email: "X@fitzone.in", Role: domain.RoleMember, CreatedAt: now})
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate Save() error = %v, want ErrConflict", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d", n)
	}
}
