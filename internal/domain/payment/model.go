package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"repcount/internal/domain/lifecycle"
)

// Method constants
const (
	MethodCash = "cash"
	MethodUPI  = "upi"
	MethodCard = "card"
)

// Domain errors
var (
	ErrEmptyMemberID = errors.New("payment must be associated with a member")
	ErrEmptyGymID    = errors.New("payment must be associated with a gym")
	ErrNonPositive   = errors.New("payment amount must be positive")
	ErrInvalidMethod = errors.New("method must be one of: cash, upi, card")
	ErrInvalidPeriod = errors.New("payment period must end after it starts")
	ErrNoPaidAt      = errors.New("payment time must be set")
)

// Payment is money received for one membership period.
type Payment struct {
	ID          string
	MemberID    string
	GymID       string
	Amount      decimal.Decimal
	Method      string
	PeriodStart lifecycle.Date
	PeriodEnd   lifecycle.Date
	PaidAt      time.Time
	Note        string
}

// Validate checks if the Payment has valid data.
// PRE: Payment struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Payment) Validate() error {
	if p.MemberID == "" {
		return ErrEmptyMemberID
	}
	if p.GymID == "" {
		return ErrEmptyGymID
	}
	if !p.Amount.IsPositive() {
		return ErrNonPositive
	}
	switch p.Method {
	case MethodCash, MethodUPI, MethodCard:
	default:
		return ErrInvalidMethod
	}
	if p.PeriodStart.IsZero() || !p.PeriodEnd.After(p.PeriodStart) {
		return ErrInvalidPeriod
	}
	if p.PaidAt.IsZero() {
		return ErrNoPaidAt
	}
	return nil
}

// Total sums amounts with exact decimal arithmetic.
func Total(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}
