package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/member"
	"repcount/internal/domain/payment"
)

// RenewMembershipInput carries input for the renewal orchestrator.
type RenewMembershipInput struct {
	GymID    string
	MemberID string
	Months   int             // 0 renews one plan period
	Amount   decimal.Decimal // zero charges the plan fee pro rata
	Method   string          // defaults to cash
	Note     string
}

// RenewMembershipResult carries the renewed member and the recorded payment.
// Payment is nil for complimentary renewals.
type RenewMembershipResult struct {
	Member  member.Member
	Payment *payment.Payment
}

// RenewalStore records a paid renewal: the payment and the member's new
// expiry are written together or not at all.
type RenewalStore interface {
	RecordRenewal(ctx context.Context, p payment.Payment, expiry lifecycle.Date) error
}

// RenewMembershipDeps holds dependencies for RenewMembership.
type RenewMembershipDeps struct {
	MemberStore  MemberStore
	PaymentStore RenewalStore
	Now          func() time.Time
	GenerateID   func() string
}

// ExecuteRenewMembership extends a membership and records the payment.
// PRE: member exists in GymID and is not archived
// POST: ExpiryDate extended from max(expiry, today); a payment covering the
// new period is stored with it when the amount is positive
// INVARIANT: a negative amount is rejected before anything is stored
func ExecuteRenewMembership(ctx context.Context, input RenewMembershipInput, deps RenewMembershipDeps) (RenewMembershipResult, error) {
	if input.MemberID == "" {
		return RenewMembershipResult{}, invalid(fmt.Errorf("member ID is required"))
	}
	if input.Amount.IsNegative() {
		return RenewMembershipResult{}, invalid(payment.ErrNonPositive)
	}
	m, err := loadGymMember(ctx, deps.MemberStore, input.GymID, input.MemberID)
	if err != nil {
		return RenewMembershipResult{}, err
	}
	if m.Archived {
		return RenewMembershipResult{}, ErrMemberArchived
	}

	now := deps.Now()
	today := lifecycle.DateOf(now)
	planMonths := member.PlanMonths[m.Plan]
	months := input.Months
	if months == 0 {
		months = planMonths
	}

	start, err := m.Renew(months, today)
	if err != nil {
		return RenewMembershipResult{}, invalid(err)
	}

	amount := input.Amount
	if amount.IsZero() && planMonths > 0 {
		amount = m.Fee.Mul(decimal.NewFromInt(int64(months))).Div(decimal.NewFromInt(int64(planMonths))).RoundBank(0)
	}
	method := input.Method
	if method == "" {
		method = payment.MethodCash
	}

	var p *payment.Payment
	if amount.IsPositive() {
		p = &payment.Payment{
			ID:          deps.GenerateID(),
			MemberID:    m.ID,
			GymID:       m.GymID,
			Amount:      amount,
			Method:      method,
			PeriodStart: start,
			PeriodEnd:   m.ExpiryDate,
			PaidAt:      now,
			Note:        input.Note,
		}
		if err := p.Validate(); err != nil {
			return RenewMembershipResult{}, invalid(err)
		}
	}

	if p != nil {
		if err := deps.PaymentStore.RecordRenewal(ctx, *p, m.ExpiryDate); err != nil {
			return RenewMembershipResult{}, fmt.Errorf("record renewal: %w", err)
		}
	} else if err := deps.MemberStore.Save(ctx, m); err != nil {
		return RenewMembershipResult{}, err
	}

	slog.Info("member_event", "event", "membership_renewed", "member_id", m.ID, "months", months, "expiry", m.ExpiryDate.String(), "amount", amount.String())
	return RenewMembershipResult{Member: m, Payment: p}, nil
}

type memberGetter interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// loadGymMember fetches a member and hides members of other gyms behind
// storage.ErrNotFound.
func loadGymMember(ctx context.Context, store memberGetter, gymID, memberID string) (member.Member, error) {
	m, err := store.GetByID(ctx, memberID)
	if err != nil {
		return member.Member{}, err
	}
	if gymID != "" && m.GymID != gymID {
		return member.Member{}, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	return m, nil
}
