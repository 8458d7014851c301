package projections

import (
	"context"

	"repcount/internal/adapters/storage/member"
	"repcount/internal/application/listutil"
	"repcount/internal/domain/lifecycle"
)

// MemberListSortColumns are the sort keys the member list accepts.
var MemberListSortColumns = []string{"name", "expiry", "joined", "plan"}

// MemberListFilterKeys are the exact-match filters the member list accepts.
var MemberListFilterKeys = []string{"status", "archived"}

// GetMemberListQuery carries query parameters.
type GetMemberListQuery struct {
	GymID  string
	Today  lifecycle.Date
	Params listutil.ListParams
}

// GetMemberListResult carries the query result.
type GetMemberListResult struct {
	Members []MemberView      `json:"members"`
	Page    listutil.PageInfo `json:"page"`
}

// GetMemberListDeps holds dependencies for GetMemberList.
type GetMemberListDeps struct {
	MemberStore MemberStore
}

// QueryGetMemberList retrieves one page of a gym's members.
// PRE: GymID and Today are set
// POST: Every returned member has the derived status requested by the
// "status" filter, when one is given; unknown statuses are ignored
func QueryGetMemberList(ctx context.Context, query GetMemberListQuery, deps GetMemberListDeps) (GetMemberListResult, error) {
	filter := member.ListFilter{
		GymID:    query.GymID,
		Today:    query.Today,
		Archived: query.Params.Filters["archived"] == "true",
		Search:   query.Params.Search,
		Sort:     query.Params.Sort,
		Dir:      query.Params.Dir,
	}
	if s := lifecycle.Status(query.Params.Filters["status"]); s.Valid() {
		filter.Status = s
	}

	total, err := deps.MemberStore.Count(ctx, filter)
	if err != nil {
		return GetMemberListResult{}, err
	}
	page := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = page.Offset()

	members, err := deps.MemberStore.List(ctx, filter)
	if err != nil {
		return GetMemberListResult{}, err
	}

	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, NewMemberView(m, query.Today))
	}
	return GetMemberListResult{Members: views, Page: page}, nil
}
