package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/evently/pkg/pagination"
	"github.com/agentstation/evently/pkg/types"
)

func TestInitial(t *testing.T) {
	assert.Equal(t, pagination.State{CurrentPage: 1, TotalPages: 1}, pagination.Initial())
	assert.Equal(t, pagination.Initial(), pagination.FromMeta(nil))
}

func TestFromMeta(t *testing.T) {
	tests := []struct {
		name string
		meta types.PaginationMeta
		want pagination.State
	}{
		{
			name: "zero items is one empty page",
			meta: types.PaginationMeta{Total: 0, Page: 1, Limit: 10},
			want: pagination.State{CurrentPage: 1, TotalPages: 1},
		},
		{
			name: "zero limit does not divide",
			meta: types.PaginationMeta{Total: 0},
			want: pagination.State{CurrentPage: 1, TotalPages: 1},
		},
		{
			name: "middle page",
			meta: types.PaginationMeta{Total: 25, Page: 2, Limit: 10},
			want: pagination.State{CurrentPage: 2, TotalPages: 3, TotalItems: 25, HasNext: true, HasPrev: true},
		},
		{
			name: "last page",
			meta: types.PaginationMeta{Total: 20, Page: 2, Limit: 10},
			want: pagination.State{CurrentPage: 2, TotalPages: 2, TotalItems: 20, HasPrev: true},
		},
		{
			name: "server total pages used without limit",
			meta: types.PaginationMeta{Total: 40, Page: 1, TotalPages: 4},
			want: pagination.State{CurrentPage: 1, TotalPages: 4, TotalItems: 40, HasNext: true},
		},
		{
			name: "single full page",
			meta: types.PaginationMeta{Total: 2, Page: 1, Limit: 10},
			want: pagination.State{CurrentPage: 1, TotalPages: 1, TotalItems: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := tt.meta
			assert.Equal(t, tt.want, pagination.FromMeta(&meta))
		})
	}
}
