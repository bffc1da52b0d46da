// Package normalize converts entity lists into an id-keyed map plus an
// ordered id list, the shape the stores keep their collections in.
package normalize

import "github.com/agentstation/evently/pkg/types"

// Result is a normalized collection.
type Result[T types.Identifiable] struct {
	ByID map[int]T
	IDs  []int
}

// Normalize indexes items by id. On a repeated id the last occurrence wins
// in ByID while IDs keeps the position of the first occurrence. An empty
// input yields an empty, non-nil map and id list.
func Normalize[T types.Identifiable](items []T) Result[T] {
	res := Result[T]{
		ByID: make(map[int]T, len(items)),
		IDs:  make([]int, 0, len(items)),
	}
	for _, item := range items {
		id := item.GetID()
		if _, seen := res.ByID[id]; !seen {
			res.IDs = append(res.IDs, id)
		}
		res.ByID[id] = item
	}
	return res
}

// Merge returns a copy of dst with every entry of src upserted.
// dst is not modified.
func Merge[T any](dst, src map[int]T) map[int]T {
	out := make(map[int]T, len(dst)+len(src))
	for id, v := range dst {
		out[id] = v
	}
	for id, v := range src {
		out[id] = v
	}
	return out
}

// Resolve maps ids to entities, silently skipping ids missing from byID.
func Resolve[T any](ids []int, byID map[int]T) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Without returns a copy of ids with every occurrence of id removed.
func Without(ids []int, id int) []int {
	out := make([]int, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
