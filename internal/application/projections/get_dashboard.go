package projections

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/storage/member"
	"repcount/internal/domain/lifecycle"
)

// GetDashboardQuery carries query parameters.
type GetDashboardQuery struct {
	GymID string
	Today lifecycle.Date
}

// GetDashboardDeps holds dependencies for GetDashboard.
type GetDashboardDeps struct {
	MemberStore  MemberStore
	CheckInStore CheckInStore
	PaymentStore PaymentStore
}

// Dashboard is the owner's at-a-glance summary.
type Dashboard struct {
	Today            lifecycle.Date  `json:"today"`
	Active           int             `json:"active"`
	Expiring         int             `json:"expiring"`
	Expired          int             `json:"expired"`
	CheckInsToday    int             `json:"check_ins_today"`
	CheckInsLastWeek int             `json:"check_ins_last_week"`
	RevenueThisMonth decimal.Decimal `json:"-"`
	RevenueLabel     string          `json:"revenue_this_month"`
}

// QueryGetDashboard counts members by derived status and sums this month's takings.
// PRE: GymID and Today are set
// POST: Active + Expiring + Expired equals the number of current members;
// CheckInsLastWeek covers the seven days ending Today
func QueryGetDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps) (Dashboard, error) {
	d := Dashboard{Today: query.Today}

	counts := []struct {
		status lifecycle.Status
		dst    *int
	}{
		{lifecycle.StatusActive, &d.Active},
		{lifecycle.StatusExpiring, &d.Expiring},
		{lifecycle.StatusExpired, &d.Expired},
	}
	for _, c := range counts {
		n, err := deps.MemberStore.Count(ctx, member.ListFilter{GymID: query.GymID, Today: query.Today, Status: c.status})
		if err != nil {
			return Dashboard{}, fmt.Errorf("count %s members: %w", c.status, err)
		}
		*c.dst = n
	}

	var err error
	if d.CheckInsToday, err = deps.CheckInStore.CountBetween(ctx, query.GymID, query.Today, query.Today); err != nil {
		return Dashboard{}, fmt.Errorf("count check-ins: %w", err)
	}
	if d.CheckInsLastWeek, err = deps.CheckInStore.CountBetween(ctx, query.GymID, query.Today.AddDays(-6), query.Today); err != nil {
		return Dashboard{}, fmt.Errorf("count check-ins: %w", err)
	}

	monthStart := lifecycle.NewDate(query.Today.Year, query.Today.Month, 1)
	d.RevenueThisMonth, err = deps.PaymentStore.SumBetween(ctx, query.GymID, monthStart.Midnight(), monthStart.AddMonths(1).Midnight())
	if err != nil {
		return Dashboard{}, fmt.Errorf("sum payments: %w", err)
	}
	d.RevenueLabel = lifecycle.FormatCurrencyINR(d.RevenueThisMonth)
	return d, nil
}
