package normalize_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/pkg/normalize"
	"github.com/agentstation/evently/pkg/types"
)

func TestNormalize(t *testing.T) {
	t.Run("unique ids keep input order", func(t *testing.T) {
		events := []types.Event{{ID: 3, Title: "c"}, {ID: 1, Title: "a"}, {ID: 2, Title: "b"}}

		res := normalize.Normalize(events)

		assert.Len(t, res.ByID, 3)
		assert.Equal(t, []int{3, 1, 2}, res.IDs)
		for _, e := range events {
			if diff := cmp.Diff(e, res.ByID[e.ID]); diff != "" {
				t.Errorf("entity %d mismatch (-want +got):\n%s", e.ID, diff)
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		res := normalize.Normalize[types.Event](nil)
		require.NotNil(t, res.ByID)
		require.NotNil(t, res.IDs)
		assert.Empty(t, res.ByID)
		assert.Empty(t, res.IDs)
	})

	t.Run("duplicate id last wins", func(t *testing.T) {
		events := []types.Event{{ID: 1, Title: "first"}, {ID: 2}, {ID: 1, Title: "last"}}

		res := normalize.Normalize(events)

		assert.Len(t, res.ByID, 2)
		assert.Equal(t, "last", res.ByID[1].Title)
		assert.Equal(t, []int{1, 2}, res.IDs)
	})
}

func TestMerge(t *testing.T) {
	dst := map[int]string{1: "a", 2: "b"}
	out := normalize.Merge(dst, map[int]string{2: "B", 3: "c"})

	assert.Equal(t, map[int]string{1: "a", 2: "B", 3: "c"}, out)
	assert.Equal(t, map[int]string{1: "a", 2: "b"}, dst, "dst must not change")
}

func TestResolve_SkipsMissing(t *testing.T) {
	byID := map[int]string{1: "a", 3: "c"}
	assert.Equal(t, []string{"c", "a"}, normalize.Resolve([]int{3, 2, 1}, byID))
	assert.Empty(t, normalize.Resolve(nil, byID))
}

func TestWithout(t *testing.T) {
	ids := []int{1, 2, 3, 2}
	assert.Equal(t, []int{1, 3}, normalize.Without(ids, 2))
	assert.Equal(t, []int{1, 2, 3, 2}, ids)
}
