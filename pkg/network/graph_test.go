package network

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph(1.0)
	for id, p := range map[int]float64{1: 0, 2: 0.3, 3: -0.2, 4: 0.1} {
		require.NoError(t, g.AddNode(Node{ID: id, VnKV: 20, P: p}))
	}
	b := 2.0
	require.NoError(t, g.AddEdge(Edge{U: 1, V: 2, Kind: KindLine, BPU: &b, IMinPU: -1, IMaxPU: 1}))
	require.NoError(t, g.AddEdge(Edge{U: 2, V: 3, Kind: KindLine, BPU: &b, IMinPU: -1, IMaxPU: 1}))
	require.NoError(t, g.AddEdge(Edge{U: 3, V: 4, Kind: KindTransformer, IMinPU: -1000, IMaxPU: 1000}))
	return g
}

func TestGraphAddNode(t *testing.T) {
	g := NewGraph(1.0)
	require.NoError(t, g.AddNode(Node{ID: 7, VnKV: 20}))

	err := g.AddNode(Node{ID: 7, VnKV: 20})
	var dataErr *DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "node 7", dataErr.Element)
}

func TestGraphAddEdgeValidation(t *testing.T) {
	g := NewGraph(1.0)
	require.NoError(t, g.AddNode(Node{ID: 1, VnKV: 20}))

	tests := []struct {
		name string
		edge Edge
	}{
		{"unknown endpoint", Edge{U: 1, V: 99, Kind: KindLine}},
		{"unknown source", Edge{U: 98, V: 1, Kind: KindLine}},
		{"crossed current bounds", Edge{U: 1, V: 1, Kind: KindLine, IMinPU: 1, IMaxPU: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddEdge(tt.edge)
			var dataErr *DataError
			require.ErrorAs(t, err, &dataErr)
		})
	}
}

func TestGraphNeighbors(t *testing.T) {
	g := buildTestGraph(t)

	assert.ElementsMatch(t, []int{1, 3}, g.Neighbors(2))
	assert.ElementsMatch(t, []int{2, 4}, g.Neighbors(3))
	assert.Empty(t, g.Neighbors(42))
}

func TestGraphSubgraph(t *testing.T) {
	g := buildTestGraph(t)

	sub, err := g.Subgraph([]int{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, 3, sub.NumNodes())
	// Only edges with both endpoints selected survive; the transformer to
	// node 4 is dropped.
	require.Equal(t, 2, sub.NumEdges())
	assert.Equal(t, [2]int{1, 2}, sub.Edges()[0].Key())
	assert.Equal(t, [2]int{2, 3}, sub.Edges()[1].Key())

	// Node attributes are copied, not shared.
	n, ok := sub.Node(2)
	require.True(t, ok)
	assert.Equal(t, 0.3, n.P)

	_, err = g.Subgraph([]int{1, 99})
	var dataErr *DataError
	require.ErrorAs(t, err, &dataErr)
}

func TestEdgeJSONKeepsEndpoints(t *testing.T) {
	b := 2.0
	e := Edge{U: 1, V: 2, Kind: KindLine, BPU: &b, IMinPU: -1, IMaxPU: 1}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	// Both endpoints must serialize under their own keys.
	var keys map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.EqualValues(t, 1, keys["u"])
	assert.EqualValues(t, 2, keys["v"])

	var back Edge
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 1, back.U)
	assert.Equal(t, 2, back.V)
	require.NotNil(t, back.BPU)
	assert.Equal(t, 2.0, *back.BPU)
}

func TestGraphSortedNodes(t *testing.T) {
	g := NewGraph(1.0)
	for _, id := range []int{5, 1, 3} {
		require.NoError(t, g.AddNode(Node{ID: id, VnKV: 20}))
	}
	assert.Equal(t, []int{5, 1, 3}, g.Nodes())
	assert.Equal(t, []int{1, 3, 5}, g.SortedNodes())
}
