package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/member"
	"repcount/internal/domain/payment"
)

// MemberStore defines the interface for member persistence.
type MemberStore interface {
	Save(ctx context.Context, m member.Member) error
	GetByID(ctx context.Context, id string) (member.Member, error)
	GetByPhone(ctx context.Context, gymID, phone string) (member.Member, error)
}

// PaymentStore defines the interface for payment persistence.
type PaymentStore interface {
	Save(ctx context.Context, p payment.Payment) error
}

// RegisterMemberInput carries input for the orchestrator.
type RegisterMemberInput struct {
	GymID     string
	Name      string
	Phone     string
	Email     string
	Plan      string
	Fee       decimal.Decimal
	JoinedOn  lifecycle.Date // defaults to today
	BirthDate lifecycle.Date
	// PaidMethod records the first period's fee as paid when set.
	PaidMethod string
}

// RegisterMemberResult carries the new member and the optional first payment.
type RegisterMemberResult struct {
	Member  member.Member
	Payment *payment.Payment
}

// RegisterMemberDeps holds dependencies for RegisterMember.
type RegisterMemberDeps struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
	Now          func() time.Time
	GenerateID   func() string
}

// ExecuteRegisterMember coordinates member registration.
// PRE: Non-empty name, normalizable phone, known plan
// POST: Member created with ExpiryDate = JoinedOn + one plan period
// INVARIANT: Phone is unique within the gym
func ExecuteRegisterMember(ctx context.Context, input RegisterMemberInput, deps RegisterMemberDeps) (RegisterMemberResult, error) {
	now := deps.Now()
	today := lifecycle.DateOf(now)

	months, ok := member.PlanMonths[input.Plan]
	if !ok {
		return RegisterMemberResult{}, invalid(member.ErrInvalidPlan)
	}
	joined := input.JoinedOn
	if joined.IsZero() {
		joined = today
	}

	m := member.Member{
		ID:         deps.GenerateID(),
		GymID:      input.GymID,
		Name:       input.Name,
		Phone:      input.Phone,
		Email:      input.Email,
		Plan:       input.Plan,
		Fee:        input.Fee,
		JoinedOn:   joined,
		ExpiryDate: joined.AddMonths(months),
		BirthDate:  input.BirthDate,
	}
	m.Normalize()
	if err := m.Validate(); err != nil {
		return RegisterMemberResult{}, invalid(err)
	}

	if _, err := deps.MemberStore.GetByPhone(ctx, m.GymID, m.Phone); err == nil {
		return RegisterMemberResult{}, ErrDuplicatePhone
	} else if !errors.Is(err, storage.ErrNotFound) {
		return RegisterMemberResult{}, fmt.Errorf("check phone: %w", err)
	}

	var first *payment.Payment
	if input.PaidMethod != "" && m.Fee.IsPositive() {
		first = &payment.Payment{
			ID:          deps.GenerateID(),
			MemberID:    m.ID,
			GymID:       m.GymID,
			Amount:      m.Fee,
			Method:      input.PaidMethod,
			PeriodStart: m.JoinedOn,
			PeriodEnd:   m.ExpiryDate,
			PaidAt:      now,
			Note:        "joining fee",
		}
		if err := first.Validate(); err != nil {
			return RegisterMemberResult{}, invalid(err)
		}
	}

	if err := deps.MemberStore.Save(ctx, m); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return RegisterMemberResult{}, ErrDuplicatePhone
		}
		return RegisterMemberResult{}, err
	}
	result := RegisterMemberResult{Member: m}
	if first != nil {
		if err := deps.PaymentStore.Save(ctx, *first); err != nil {
			return result, fmt.Errorf("record payment: %w", err)
		}
		result.Payment = first
	}

	slog.Info("member_event", "event", "member_registered", "member_id", m.ID, "gym_id", m.GymID, "plan", m.Plan, "expiry", m.ExpiryDate.String())
	return result, nil
}
