// Package listutil parses paging, sorting and filtering for list endpoints.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// DefaultPerPage is the page size when none (or an unsupported one) is asked for.
const DefaultPerPage = 20

// PerPageOptions are the page sizes a client may request.
var PerPageOptions = []int{10, 20, 50, 100}

// PageParams carries the requested page.
type PageParams struct {
	Page    int // 1-indexed
	PerPage int
}

// SortParams carries the requested ordering. An empty Sort means the
// store's default order.
type SortParams struct {
	Sort string
	Dir  string // "asc" or "desc"
}

// FilterParams carries the free-text search and exact-match filters.
type FilterParams struct {
	Search  string
	Filters map[string]string
}

// ListParams combines everything a list request can carry.
type ListParams struct {
	PageParams
	SortParams
	FilterParams
}

// PageInfo describes the page actually returned.
type PageInfo struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// ParsePageParams reads page and per_page, falling back to defaults.
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !slices.Contains(PerPageOptions, perPage) {
		perPage = DefaultPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// ParseSortParams reads sort and dir. Unknown columns are dropped and
// dir is normalised to "asc" or "desc".
func ParseSortParams(q url.Values, allowedColumns []string) SortParams {
	sort := strings.ToLower(q.Get("sort"))
	if !slices.Contains(allowedColumns, sort) {
		sort = ""
	}
	dir := strings.ToLower(q.Get("dir"))
	if dir != "desc" {
		dir = "asc"
	}
	return SortParams{Sort: sort, Dir: dir}
}

// ParseFilterParams reads q as the search term plus the named filters.
// Keys not in filterKeys are ignored.
func ParseFilterParams(q url.Values, filterKeys []string) FilterParams {
	fp := FilterParams{
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string, len(filterKeys)),
	}
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			fp.Filters[key] = v
		}
	}
	return fp
}

// ParseListParams parses all list parameters from a query string.
func ParseListParams(q url.Values, allowedSortCols []string, filterKeys []string) ListParams {
	return ListParams{
		PageParams:   ParsePageParams(q),
		SortParams:   ParseSortParams(q, allowedSortCols),
		FilterParams: ParseFilterParams(q, filterKeys),
	}
}

// NewPageInfo clamps page into range for the given total.
// PRE: total >= 0
// POST: 1 <= Page <= TotalPages; TotalPages >= 1 even when total is 0
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	page = min(max(page, 1), totalPages)
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// Offset is the number of rows before the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}
