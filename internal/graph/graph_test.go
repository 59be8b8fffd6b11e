package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeset/aliases/internal/graph"
)

func succsOf(edges map[int][]int) func(int) []int {
	return func(v int) []int { return edges[v] }
}

func TestSCC(t *testing.T) {
	t.Run("chain", func(t *testing.T) {
		comp, members := graph.SCC(3, succsOf(map[int][]int{0: {1}, 1: {2}}))
		require.Len(t, members, 3)
		assert.NotEqual(t, comp[0], comp[1])
		assert.NotEqual(t, comp[1], comp[2])
	})

	t.Run("cycle", func(t *testing.T) {
		comp, members := graph.SCC(4, succsOf(map[int][]int{0: {1}, 1: {2}, 2: {1, 3}}))
		require.Len(t, members, 3)
		assert.Equal(t, comp[1], comp[2])
		assert.NotEqual(t, comp[0], comp[1])
		assert.NotEqual(t, comp[1], comp[3])
		assert.Equal(t, []int{1, 2}, members[comp[1]], "members are in ascending order")
	})

	t.Run("self loop", func(t *testing.T) {
		comp, members := graph.SCC(1, succsOf(map[int][]int{0: {0}}))
		require.Len(t, members, 1)
		assert.Equal(t, 0, comp[0])
	})

	t.Run("disconnected", func(t *testing.T) {
		comp, members := graph.SCC(3, succsOf(nil))
		assert.Len(t, members, 3)
		assert.ElementsMatch(t, []int{0, 1, 2}, comp)
	})
}

func TestSCCCondensationIsAcyclic(t *testing.T) {
	edges := map[int][]int{0: {1}, 1: {2}, 2: {0, 3}, 3: {4}, 4: {3}}
	comp, members := graph.SCC(5, succsOf(edges))

	require.Len(t, members, 2)
	// Edges between components only go one way.
	assert.Equal(t, comp[0], comp[1])
	assert.Equal(t, comp[3], comp[4])
	assert.NotEqual(t, comp[0], comp[3])
}

func TestReversePostOrder(t *testing.T) {
	// Diamond: 0 -> {1, 2} -> 3. Both interior nodes must come after the
	// root and before the join.
	order := graph.ReversePostOrder(4, succsOf(map[int][]int{0: {1, 2}, 1: {3}, 2: {3}}), 0)
	require.Len(t, order, 4)

	pos := make(map[int]int, len(order))
	for i, v := range order {
		pos[v] = i
	}
	assert.Equal(t, 0, pos[0])
	assert.Less(t, pos[1], pos[3])
	assert.Less(t, pos[2], pos[3])
}

func TestReversePostOrderUnreachable(t *testing.T) {
	order := graph.ReversePostOrder(3, succsOf(map[int][]int{0: {1}}), 0)
	assert.Equal(t, []int{0, 1}, order, "unreachable nodes are not visited")
}
