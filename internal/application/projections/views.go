package projections

import (
	"repcount/internal/domain/lifecycle"
	domainMember "repcount/internal/domain/member"
	domainPayment "repcount/internal/domain/payment"
)

// MemberView is a member as the owner and member screens show it. Status
// and DaysLeft are derived for the query's day.
type MemberView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Initials    string           `json:"initials"`
	Phone       string           `json:"phone"`
	Email       string           `json:"email,omitempty"`
	Plan        string           `json:"plan"`
	Fee         string           `json:"fee"`
	JoinedOn    lifecycle.Date   `json:"joined_on"`
	ExpiryDate  lifecycle.Date   `json:"expiry_date"`
	ExpiryLabel string           `json:"expiry_label"`
	Status      lifecycle.Status `json:"status"`
	DaysLeft    int              `json:"days_left"`
	ShortCode   string           `json:"short_code"`
	Archived    bool             `json:"archived"`
}

// NewMemberView flattens a member for display with status derived for today.
func NewMemberView(m domainMember.Member, today lifecycle.Date) MemberView {
	return MemberView{
		ID:          m.ID,
		Name:        m.Name,
		Initials:    lifecycle.Initials(m.Name),
		Phone:       lifecycle.FormatPhone(m.Phone),
		Email:       m.Email,
		Plan:        m.Plan,
		Fee:         lifecycle.FormatCurrencyINR(m.Fee),
		JoinedOn:    m.JoinedOn,
		ExpiryDate:  m.ExpiryDate,
		ExpiryLabel: lifecycle.FormatDate(m.ExpiryDate),
		Status:      m.Status(today),
		DaysLeft:    m.DaysLeft(today),
		ShortCode:   lifecycle.ShortCode(m.ID),
		Archived:    m.Archived,
	}
}

// PaymentView is one payment in a member's history.
type PaymentView struct {
	ID          string         `json:"id"`
	Amount      string         `json:"amount"`
	Method      string         `json:"method"`
	PeriodStart lifecycle.Date `json:"period_start"`
	PeriodEnd   lifecycle.Date `json:"period_end"`
	PaidOn      lifecycle.Date `json:"paid_on"`
	Note        string         `json:"note,omitempty"`
}

// NewPaymentView formats a payment for display.
func NewPaymentView(p domainPayment.Payment) PaymentView {
	return PaymentView{
		ID:          p.ID,
		Amount:      lifecycle.FormatCurrencyINR(p.Amount),
		Method:      p.Method,
		PeriodStart: p.PeriodStart,
		PeriodEnd:   p.PeriodEnd,
		PaidOn:      lifecycle.DateOf(p.PaidAt),
		Note:        p.Note,
	}
}
