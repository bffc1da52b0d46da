// Package pagination derives view-friendly paging state from server metadata.
package pagination

import "github.com/agentstation/evently/pkg/types"

// State is the paging view of one list.
type State struct {
	CurrentPage int  `json:"currentPage" yaml:"current_page"`
	TotalPages  int  `json:"totalPages" yaml:"total_pages"`
	TotalItems  int  `json:"totalItems" yaml:"total_items"`
	HasNext     bool `json:"hasNextPage" yaml:"has_next_page"`
	HasPrev     bool `json:"hasPrevPage" yaml:"has_prev_page"`
}

// Initial returns the neutral state: one empty page.
func Initial() State {
	return State{CurrentPage: 1, TotalPages: 1}
}

// FromMeta builds a State from server metadata. A nil meta yields Initial.
// The page count is recomputed from total and limit when limit is positive
// and never drops below one.
func FromMeta(meta *types.PaginationMeta) State {
	if meta == nil {
		return Initial()
	}

	total := max(meta.Total, 0)
	pages := meta.TotalPages
	if meta.Limit > 0 {
		pages = (total + meta.Limit - 1) / meta.Limit
	}
	pages = max(pages, 1)

	current := max(meta.Page, 1)

	return State{
		CurrentPage: current,
		TotalPages:  pages,
		TotalItems:  total,
		HasNext:     current < pages,
		HasPrev:     current > 1,
	}
}
