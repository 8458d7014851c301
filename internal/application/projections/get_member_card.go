package projections

import (
	"context"
	"errors"
	"fmt"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/lifecycle"
	domainMember "repcount/internal/domain/member"
)

// recentCheckIns is how many past visits the card lists.
const recentCheckIns = 10

// GetMemberCardQuery carries query parameters. Exactly one of MemberID or
// AccountID identifies the member; GymID, when set, scopes the lookup.
type GetMemberCardQuery struct {
	MemberID  string
	AccountID string
	GymID     string
	Today     lifecycle.Date
}

// GetMemberCardDeps holds dependencies for GetMemberCard.
type GetMemberCardDeps struct {
	MemberStore  MemberStore
	GymStore     GymStore
	CheckInStore CheckInStore
	PaymentStore PaymentStore
}

// MemberCard is the member's digital membership card.
type MemberCard struct {
	Member         MemberView       `json:"member"`
	GymName        string           `json:"gym_name"`
	QRPayload      string           `json:"qr_payload"`
	CheckedInToday bool             `json:"checked_in_today"`
	LastCheckIn    lifecycle.Date   `json:"last_check_in"`
	RecentVisits   []lifecycle.Date `json:"recent_visits"`
	Payments       []PaymentView    `json:"payments"`
}

// QueryGetMemberCard assembles a member card.
// PRE: MemberID or AccountID is set; Today is set
// POST: Returns the card or an error wrapping storage.ErrNotFound
// INVARIANT: QRPayload is the member ID, which CheckInMember accepts
func QueryGetMemberCard(ctx context.Context, query GetMemberCardQuery, deps GetMemberCardDeps) (MemberCard, error) {
	m, err := lookupMember(ctx, query, deps.MemberStore)
	if err != nil {
		return MemberCard{}, err
	}
	if query.GymID != "" && m.GymID != query.GymID {
		return MemberCard{}, fmt.Errorf("member %s: %w", m.ID, storage.ErrNotFound)
	}

	g, err := deps.GymStore.GetByID(ctx, m.GymID)
	if err != nil {
		return MemberCard{}, fmt.Errorf("load gym: %w", err)
	}

	visits, err := deps.CheckInStore.ListByMember(ctx, m.ID, recentCheckIns)
	if err != nil {
		return MemberCard{}, fmt.Errorf("load check-ins: %w", err)
	}
	payments, err := deps.PaymentStore.ListByMember(ctx, m.ID)
	if err != nil {
		return MemberCard{}, fmt.Errorf("load payments: %w", err)
	}

	card := MemberCard{
		Member:       NewMemberView(m, query.Today),
		GymName:      g.Name,
		QRPayload:    m.ID,
		RecentVisits: make([]lifecycle.Date, 0, len(visits)),
		Payments:     make([]PaymentView, 0, len(payments)),
	}
	// Visits arrive newest first.
	for i, c := range visits {
		if i == 0 {
			card.LastCheckIn = c.Date
			card.CheckedInToday = c.Date == query.Today
		}
		card.RecentVisits = append(card.RecentVisits, c.Date)
	}
	for _, p := range payments {
		card.Payments = append(card.Payments, NewPaymentView(p))
	}
	return card, nil
}

func lookupMember(ctx context.Context, query GetMemberCardQuery, store MemberStore) (domainMember.Member, error) {
	switch {
	case query.MemberID != "":
		return store.GetByID(ctx, query.MemberID)
	case query.AccountID != "":
		return store.GetByAccountID(ctx, query.AccountID)
	}
	return domainMember.Member{}, errors.New("member ID or account ID is required")
}
