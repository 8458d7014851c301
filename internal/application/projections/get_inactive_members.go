package projections

import (
	"context"
	"sort"

	memberStore "repcount/internal/adapters/storage/member"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/reminder"
)

// GetInactiveMembersQuery carries input for the inactive radar projection.
type GetInactiveMembersQuery struct {
	GymID                string
	Today                lifecycle.Date
	DaysSinceLastCheckIn int // members inactive for at least this many days
}

// GetInactiveMembersDeps holds dependencies for the inactive radar.
type GetInactiveMembersDeps struct {
	MemberStore  MemberStore
	CheckInStore CheckInStore
}

// InactiveMemberResult represents a single inactive member.
type InactiveMemberResult struct {
	MemberID     string           `json:"member_id"`
	Name         string           `json:"name"`
	Phone        string           `json:"phone"`
	Status       lifecycle.Status `json:"status"`
	LastCheckIn  lifecycle.Date   `json:"last_check_in"` // zero when never
	DaysInactive int              `json:"days_inactive"` // counted from joining when never checked in
}

// QueryGetInactiveMembers returns current members who haven't checked in
// for at least the given number of days, longest absence first.
// PRE: GymID and Today are set
// POST: DaysSinceLastCheckIn <= 0 falls back to reminder.InactiveAfterDays
func QueryGetInactiveMembers(ctx context.Context, query GetInactiveMembersQuery, deps GetInactiveMembersDeps) ([]InactiveMemberResult, error) {
	if query.DaysSinceLastCheckIn <= 0 {
		query.DaysSinceLastCheckIn = reminder.InactiveAfterDays
	}

	members, err := deps.MemberStore.List(ctx, memberStore.ListFilter{GymID: query.GymID, Today: query.Today, Limit: allMembers})
	if err != nil {
		return nil, err
	}
	lastSeen, err := deps.CheckInStore.LastCheckIns(ctx, query.GymID)
	if err != nil {
		return nil, err
	}

	results := []InactiveMemberResult{}
	for _, m := range members {
		last := lastSeen[m.ID]
		since := last
		if since.IsZero() {
			since = m.JoinedOn
		}
		days := lifecycle.DaysSince(since, query.Today)
		if days < query.DaysSinceLastCheckIn {
			continue
		}
		results = append(results, InactiveMemberResult{
			MemberID:     m.ID,
			Name:         m.Name,
			Phone:        lifecycle.FormatPhone(m.Phone),
			Status:       m.Status(query.Today),
			LastCheckIn:  last,
			DaysInactive: days,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DaysInactive > results[j].DaysInactive
	})
	return results, nil
}
