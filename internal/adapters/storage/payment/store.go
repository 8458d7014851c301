package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"repcount/internal/domain/lifecycle"
	domain "repcount/internal/domain/payment"
)

// Store persists Payment state.
type Store interface {
	Save(ctx context.Context, p domain.Payment) error
	// RecordRenewal stores p and moves the member's expiry in one transaction.
	// POST: either both writes happen or neither does; a missing member
	// wraps storage.ErrNotFound
	RecordRenewal(ctx context.Context, p domain.Payment, expiry lifecycle.Date) error
	ListByMember(ctx context.Context, memberID string) ([]domain.Payment, error)
	// SumBetween totals a gym's payments with from <= paid_at < to.
	SumBetween(ctx context.Context, gymID string, from, to time.Time) (decimal.Decimal, error)
}
