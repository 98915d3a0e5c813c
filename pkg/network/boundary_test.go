package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundaryFixture(t *testing.T, powers map[int]float64, edges [][2]int) *Graph {
	t.Helper()
	g := NewGraph(1.0)
	for id, p := range powers {
		require.NoError(t, g.AddNode(Node{ID: id, VnKV: 20, P: p}))
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(Edge{U: e[0], V: e[1], Kind: KindLine}))
	}
	return g
}

func TestBoundaryInfo(t *testing.T) {
	g := boundaryFixture(t,
		map[int]float64{1: 0, 2: 0, 3: 0.5, 4: 2.0, 5: -0.5},
		[][2]int{{1, 3}, {2, 3}, {3, 4}, {4, 5}},
	)

	info := BoundaryInfo(g,
		map[int]bool{1: true, 2: true},
		map[int]bool{3: true},
	)

	// Own power 0.5 plus the full external component behind node 4:
	// 2.0 + (-0.5).
	require.Contains(t, info, 3)
	assert.InDelta(t, 2.0, info[3], 1e-12)
	assert.Len(t, info, 1)
}

func TestBoundaryInfoStopsAtOperationalNodes(t *testing.T) {
	// 1 - 2(child) - 3 - 4, with 4 also operational: the traversal from the
	// child must not pass through node 4 even though 5 hangs behind it.
	g := boundaryFixture(t,
		map[int]float64{1: 0, 2: 0.1, 3: 0.7, 4: 0, 5: 9.0},
		[][2]int{{1, 2}, {2, 3}, {3, 4}, {4, 5}},
	)

	info := BoundaryInfo(g,
		map[int]bool{1: true, 2: true, 4: true},
		map[int]bool{2: true},
	)

	assert.InDelta(t, 0.8, info[2], 1e-12)
}

func TestBoundaryInfoOverlappingChildren(t *testing.T) {
	// Two children sharing one external component: each BFS runs
	// independently and both sums include the shared node.
	g := boundaryFixture(t,
		map[int]float64{1: 0, 2: 0.2, 3: 0.3, 4: 1.5},
		[][2]int{{1, 2}, {1, 3}, {2, 4}, {3, 4}},
	)

	info := BoundaryInfo(g,
		map[int]bool{1: true, 2: true, 3: true},
		map[int]bool{2: true, 3: true},
	)

	assert.InDelta(t, 1.7, info[2], 1e-12)
	assert.InDelta(t, 1.8, info[3], 1e-12)
}

func TestBoundaryInfoNoExternalNeighbors(t *testing.T) {
	g := boundaryFixture(t,
		map[int]float64{1: 0, 2: 0.4},
		[][2]int{{1, 2}},
	)

	info := BoundaryInfo(g,
		map[int]bool{1: true, 2: true},
		map[int]bool{2: true},
	)

	// Fully enclosed child: the estimate is just its own power.
	assert.InDelta(t, 0.4, info[2], 1e-12)
}
