package projections

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/storage/member"
	domainAttendance "repcount/internal/domain/attendance"
	domainGym "repcount/internal/domain/gym"
	"repcount/internal/domain/lifecycle"
	domainMember "repcount/internal/domain/member"
	domainPayment "repcount/internal/domain/payment"
	domainReminderLog "repcount/internal/domain/reminderlog"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (domainMember.Member, error)
	GetByAccountID(ctx context.Context, accountID string) (domainMember.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
	Count(ctx context.Context, filter member.ListFilter) (int, error)
}

// GymStore interface for gym lookups.
type GymStore interface {
	GetByID(ctx context.Context, id string) (domainGym.Gym, error)
}

// CheckInStore interface for attendance queries.
type CheckInStore interface {
	GetByMemberAndDate(ctx context.Context, memberID string, date lifecycle.Date) (domainAttendance.CheckIn, error)
	ListByMember(ctx context.Context, memberID string, limit int) ([]domainAttendance.CheckIn, error)
	LastCheckIns(ctx context.Context, gymID string) (map[string]lifecycle.Date, error)
	CountBetween(ctx context.Context, gymID string, from, to lifecycle.Date) (int, error)
}

// PaymentStore interface for payment queries.
type PaymentStore interface {
	ListByMember(ctx context.Context, memberID string) ([]domainPayment.Payment, error)
	SumBetween(ctx context.Context, gymID string, from, to time.Time) (decimal.Decimal, error)
}

// ReminderLogStore interface for reminder send history.
type ReminderLogStore interface {
	ListByGymAndDate(ctx context.Context, gymID string, date lifecycle.Date) ([]domainReminderLog.Entry, error)
}

// allMembers is the page size used when a projection needs every current member.
const allMembers = 10000
