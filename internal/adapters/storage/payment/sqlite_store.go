package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/lifecycle"
	domain "repcount/internal/domain/payment"
)

const columns = "id, member_id, gym_id, amount, method, period_start, period_end, paid_at, note"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new payment store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const upsertPayment = `INSERT INTO payment (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	 ON CONFLICT(id) DO UPDATE SET amount=excluded.amount, method=excluded.method, note=excluded.note`

func paymentArgs(p domain.Payment) []any {
	return []any{p.ID, p.MemberID, p.GymID, p.Amount.String(), p.Method, p.PeriodStart, p.PeriodEnd,
		storage.FormatTime(p.PaidAt), p.Note}
}

// Save persists a Payment.
// PRE: p has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, p domain.Payment) error {
	_, err := s.db.ExecContext(ctx, upsertPayment, paymentArgs(p)...)
	return err
}

// RecordRenewal inserts p and sets the paying member's expiry atomically.
// PRE: p has been validated
func (s *SQLiteStore) RecordRenewal(ctx context.Context, p domain.Payment, expiry lifecycle.Date) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE member SET expiry_date = ? WHERE id = ? AND gym_id = ?", expiry, p.MemberID, p.GymID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("member %s: %w", p.MemberID, storage.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, upsertPayment, paymentArgs(p)...); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByMember returns a member's payments, newest first.
func (s *SQLiteStore) ListByMember(ctx context.Context, memberID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columns+" FROM payment WHERE member_id = ? ORDER BY paid_at DESC", memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var paidAt string
		if err := rows.Scan(&p.ID, &p.MemberID, &p.GymID, &p.Amount, &p.Method, &p.PeriodStart, &p.PeriodEnd, &paidAt, &p.Note); err != nil {
			return nil, err
		}
		if p.PaidAt, err = storage.ParseTime(paidAt); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// SumBetween totals amounts in decimal so paise never drift through floats.
func (s *SQLiteStore) SumBetween(ctx context.Context, gymID string, from, to time.Time) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM payment WHERE gym_id = ? AND paid_at >= ? AND paid_at < ?",
		gymID, storage.FormatTime(from), storage.FormatTime(to))
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}
