package orchestrators

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/member"
	"repcount/internal/domain/payment"
)

func registerDeps(members *fakeMemberStore, payments *fakePaymentStore) RegisterMemberDeps {
	return RegisterMemberDeps{
		MemberStore:  members,
		PaymentStore: payments,
		Now:          clockNow,
		GenerateID:   sequentialIDs("id"),
	}
}

// TestExecuteRegisterMember_Valid tests expiry derivation and the joining payment.
func TestExecuteRegisterMember_Valid(t *testing.T) {
	members, payments := newFakeMemberStore(), &fakePaymentStore{}
	res, err := ExecuteRegisterMember(context.Background(), RegisterMemberInput{
		GymID:      "gym-1",
		Name:       "  Priya Patel ",
		Phone:      "+91 98765-43210",
		Plan:       member.PlanQuarterly,
		Fee:        decimal.NewFromInt(4000),
		PaidMethod: payment.MethodUPI,
	}, registerDeps(members, payments))
	if err != nil {
		t.Fatalf("ExecuteRegisterMember() error = %v", err)
	}

	m := res.Member
	if m.Name != "Priya Patel" || m.Phone != "919876543210" {
		t.Errorf("member not normalized: %+v", m)
	}
	if m.JoinedOn != clockDay {
		t.Errorf("JoinedOn = %s, want %s", m.JoinedOn, clockDay)
	}
	if want := lifecycle.NewDate(2027, 1, 17); m.ExpiryDate != want {
		t.Errorf("ExpiryDate = %s, want %s", m.ExpiryDate, want)
	}
	if res.Payment == nil || len(payments.payments) != 1 {
		t.Fatalf("joining payment not recorded: %+v", payments.payments)
	}
	if p := payments.payments[0]; !p.Amount.Equal(decimal.NewFromInt(4000)) || p.PeriodEnd != m.ExpiryDate {
		t.Errorf("payment = %+v", p)
	}
}

// TestExecuteRegisterMember_NoPayment tests registration without a paid method.
func TestExecuteRegisterMember_NoPayment(t *testing.T) {
	members, payments := newFakeMemberStore(), &fakePaymentStore{}
	res, err := ExecuteRegisterMember(context.Background(), RegisterMemberInput{
		GymID: "gym-1",
		Name:  "Amit",
		Phone: "9876543210",
		Plan:  member.PlanMonthly,
		Fee:   decimal.NewFromInt(1500),
	}, registerDeps(members, payments))
	if err != nil {
		t.Fatalf("ExecuteRegisterMember() error = %v", err)
	}
	if res.Payment != nil || len(payments.payments) != 0 {
		t.Errorf("unexpected payment: %+v", payments.payments)
	}
}

// TestExecuteRegisterMember_Rejects tests validation and duplicate phones.
func TestExecuteRegisterMember_Rejects(t *testing.T) {
	existing := seededMember("m-1", clockDay.AddDays(20))

	tests := []struct {
		name  string
		input RegisterMemberInput
		want  error
	}{
		{
			name:  "unknown plan",
			input: RegisterMemberInput{GymID: "gym-1", Name: "A", Phone: "9123456789", Plan: "weekly"},
			want:  ErrInvalidInput,
		},
		{
			name:  "bad phone",
			input: RegisterMemberInput{GymID: "gym-1", Name: "A", Phone: "12345", Plan: member.PlanMonthly},
			want:  ErrInvalidInput,
		},
		{
			name:  "empty name",
			input: RegisterMemberInput{GymID: "gym-1", Name: " ", Phone: "9123456789", Plan: member.PlanMonthly},
			want:  ErrInvalidInput,
		},
		{
			name:  "duplicate phone",
			input: RegisterMemberInput{GymID: "gym-1", Name: "Other", Phone: "98765 43210", Plan: member.PlanMonthly},
			want:  ErrDuplicatePhone,
		},
		{
			name:  "bad payment method",
			input: RegisterMemberInput{GymID: "gym-1", Name: "A", Phone: "9123456789", Plan: member.PlanMonthly, Fee: decimal.NewFromInt(1500), PaidMethod: "cheque"},
			want:  ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := newFakeMemberStore(existing)
			_, err := ExecuteRegisterMember(context.Background(), tt.input, registerDeps(members, &fakePaymentStore{}))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if len(members.members) != 1 {
				t.Errorf("member saved despite error")
			}
		})
	}
}

func renewDeps(members *fakeMemberStore, payments *fakePaymentStore) RenewMembershipDeps {
	payments.members = members
	return RenewMembershipDeps{
		MemberStore:  members,
		PaymentStore: payments,
		Now:          clockNow,
		GenerateID:   sequentialIDs("pay"),
	}
}

// TestExecuteRenewMembership tests extension from expiry or from today.
func TestExecuteRenewMembership(t *testing.T) {
	tests := []struct {
		name       string
		expiry     lifecycle.Date
		months     int
		amount     decimal.Decimal
		wantStart  lifecycle.Date
		wantExpiry lifecycle.Date
		wantAmount decimal.Decimal
	}{
		{
			name:       "running membership extends from expiry",
			expiry:     lifecycle.NewDate(2026, 10, 20),
			wantStart:  lifecycle.NewDate(2026, 10, 20),
			wantExpiry: lifecycle.NewDate(2026, 11, 20),
			wantAmount: decimal.NewFromInt(1500),
		},
		{
			name:       "lapsed membership restarts today",
			expiry:     lifecycle.NewDate(2026, 10, 12),
			wantStart:  clockDay,
			wantExpiry: lifecycle.NewDate(2026, 11, 17),
			wantAmount: decimal.NewFromInt(1500),
		},
		{
			name:       "explicit months charged pro rata",
			expiry:     lifecycle.NewDate(2026, 10, 20),
			months:     3,
			wantStart:  lifecycle.NewDate(2026, 10, 20),
			wantExpiry: lifecycle.NewDate(2027, 1, 20),
			wantAmount: decimal.NewFromInt(4500),
		},
		{
			name:       "discounted amount kept",
			expiry:     lifecycle.NewDate(2026, 10, 20),
			amount:     decimal.NewFromInt(1200),
			wantStart:  lifecycle.NewDate(2026, 10, 20),
			wantExpiry: lifecycle.NewDate(2026, 11, 20),
			wantAmount: decimal.NewFromInt(1200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members, payments := newFakeMemberStore(seededMember("m-1", tt.expiry)), &fakePaymentStore{}
			res, err := ExecuteRenewMembership(context.Background(), RenewMembershipInput{
				GymID:    "gym-1",
				MemberID: "m-1",
				Months:   tt.months,
				Amount:   tt.amount,
			}, renewDeps(members, payments))
			if err != nil {
				t.Fatalf("ExecuteRenewMembership() error = %v", err)
			}
			if res.Member.ExpiryDate != tt.wantExpiry {
				t.Errorf("ExpiryDate = %s, want %s", res.Member.ExpiryDate, tt.wantExpiry)
			}
			if members.members["m-1"].ExpiryDate != tt.wantExpiry {
				t.Errorf("stored expiry not updated")
			}
			if res.Payment == nil {
				t.Fatal("payment not recorded")
			}
			if res.Payment.PeriodStart != tt.wantStart || !res.Payment.Amount.Equal(tt.wantAmount) {
				t.Errorf("payment = start %s amount %s, want %s %s", res.Payment.PeriodStart, res.Payment.Amount, tt.wantStart, tt.wantAmount)
			}
			if res.Payment.Method != payment.MethodCash {
				t.Errorf("Method = %q, want cash default", res.Payment.Method)
			}
		})
	}
}

// TestExecuteRenewMembership_Rejects tests archived, foreign and missing members.
func TestExecuteRenewMembership_Rejects(t *testing.T) {
	archived := seededMember("m-arch", clockDay)
	archived.Archived = true
	foreign := seededMember("m-other", clockDay)
	foreign.GymID = "gym-2"
	foreign.Phone = "919000000001"
	members := newFakeMemberStore(archived, foreign)

	tests := []struct {
		memberID string
		want     error
	}{
		{"m-arch", ErrMemberArchived},
		{"m-other", storage.ErrNotFound},
		{"missing", storage.ErrNotFound},
		{"", ErrInvalidInput},
	}
	for _, tt := range tests {
		_, err := ExecuteRenewMembership(context.Background(), RenewMembershipInput{GymID: "gym-1", MemberID: tt.memberID}, renewDeps(members, &fakePaymentStore{}))
		if !errors.Is(err, tt.want) {
			t.Errorf("renew %q: error = %v, want %v", tt.memberID, err, tt.want)
		}
	}
}

// TestExecuteRenewMembership_NegativeAmount tests that a negative amount
// neither extends the membership nor records anything.
func TestExecuteRenewMembership_NegativeAmount(t *testing.T) {
	expiry := lifecycle.NewDate(2026, 10, 20)
	members, payments := newFakeMemberStore(seededMember("m-1", expiry)), &fakePaymentStore{}

	_, err := ExecuteRenewMembership(context.Background(), RenewMembershipInput{
		GymID:    "gym-1",
		MemberID: "m-1",
		Amount:   decimal.NewFromInt(-500),
	}, renewDeps(members, payments))
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, payment.ErrNonPositive) {
		t.Fatalf("error = %v, want invalid ErrNonPositive", err)
	}
	if got := members.members["m-1"].ExpiryDate; got != expiry {
		t.Errorf("ExpiryDate = %s, want unchanged %s", got, expiry)
	}
	if len(payments.payments) != 0 {
		t.Errorf("payments = %v, want none", payments.payments)
	}
}

// TestExecuteRenewMembership_PaymentFailureKeepsExpiry tests that a failed
// payment write leaves the membership as it was.
func TestExecuteRenewMembership_PaymentFailureKeepsExpiry(t *testing.T) {
	expiry := lifecycle.NewDate(2026, 10, 20)
	members := newFakeMemberStore(seededMember("m-1", expiry))
	payments := &fakePaymentStore{err: errors.New("disk I/O error")}

	_, err := ExecuteRenewMembership(context.Background(), RenewMembershipInput{GymID: "gym-1", MemberID: "m-1"}, renewDeps(members, payments))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := members.members["m-1"].ExpiryDate; got != expiry {
		t.Errorf("ExpiryDate = %s after failed payment, want %s", got, expiry)
	}
}

// TestExecuteArchiveRestore tests the archive round trip and double archive.
func TestExecuteArchiveRestore(t *testing.T) {
	members := newFakeMemberStore(seededMember("m-1", clockDay.AddDays(30)))
	ctx := context.Background()

	if err := ExecuteArchiveMember(ctx, ArchiveMemberInput{GymID: "gym-1", MemberID: "m-1"}, ArchiveMemberDeps{MemberStore: members}); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !members.members["m-1"].Archived {
		t.Fatal("member not archived")
	}
	err := ExecuteArchiveMember(ctx, ArchiveMemberInput{GymID: "gym-1", MemberID: "m-1"}, ArchiveMemberDeps{MemberStore: members})
	if !errors.Is(err, member.ErrAlreadyArchived) || !errors.Is(err, ErrInvalidInput) {
		t.Errorf("second archive error = %v", err)
	}

	if err := ExecuteRestoreMember(ctx, RestoreMemberInput{GymID: "gym-1", MemberID: "m-1"}, RestoreMemberDeps{MemberStore: members}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if members.members["m-1"].Archived {
		t.Error("member still archived")
	}
	if err := ExecuteArchiveMember(ctx, ArchiveMemberInput{GymID: "gym-2", MemberID: "m-1"}, ArchiveMemberDeps{MemberStore: members}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-gym archive error = %v, want ErrNotFound", err)
	}
}
