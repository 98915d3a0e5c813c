// Package network models an annotated electrical network as an undirected,
// attributed graph. The graph is undirected but each edge (u, v) has a single
// canonical orientation given by its endpoint order. Power sign convention:
// P > 0 net consumption, P < 0 net production. All electrical quantities on
// the graph are per-unit, normalized by the graph base power SBase.
package network

import (
	"fmt"
	"sort"
)

// EdgeKind distinguishes flow-linearizable lines from transformer branches.
type EdgeKind int

const (
	KindLine          EdgeKind = iota // overhead line or cable, carries a per-unit susceptance
	KindTransformer                   // two-winding transformer, not linearizable by susceptance
	KindTransformer3W                 // one branch of a three-winding transformer
)

func (k EdgeKind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindTransformer:
		return "transformer"
	case KindTransformer3W:
		return "transformer3w"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// Role is an optional boundary tag on a node.
type Role int

const (
	RoleNone   Role = iota
	RoleParent      // injects power from outside the operational area
	RoleChild       // absorbs/exports power to outside the operational area
)

// Node is a bus of the network. PLoad/PGen/P and the reactive counterparts
// are per-unit. VMinPU/VMaxPU are optional per-node voltage bounds; nil means
// the caller-level defaults apply.
type Node struct {
	ID     int      `json:"id"`
	Label  string   `json:"label,omitempty"`
	VnKV   float64  `json:"vn_kv"`
	PLoad  float64  `json:"p_load"`
	PGen   float64  `json:"p_gen"`
	P      float64  `json:"p"`
	QLoad  float64  `json:"q_load"`
	QGen   float64  `json:"q_gen"`
	Q      float64  `json:"q"`
	VMinPU *float64 `json:"v_min_pu,omitempty"`
	VMaxPU *float64 `json:"v_max_pu,omitempty"`
	Role   Role     `json:"role,omitempty"`
}

// Edge is a branch between two buses. BPU is the per-unit susceptance; it is
// nil for transformer branches, which stay in the graph for connectivity but
// are exempt from flow linearization. RPU/XPU are per-unit resistance and
// reactance used by the relaxed AC formulation. Current bounds are per-unit
// and symmetric around zero unless a thermal rating was known.
type Edge struct {
	U        int      `json:"u"` // canonical orientation (U, V)
	V        int      `json:"v"`
	Kind     EdgeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	LengthKM float64  `json:"length_km,omitempty"`
	XOhm     float64  `json:"x_ohm,omitempty"`
	ROhm     float64  `json:"r_ohm,omitempty"`
	MaxIKA   *float64 `json:"max_i_ka,omitempty"`
	BPU      *float64 `json:"b_pu,omitempty"`
	RPU      float64  `json:"r_pu"`
	XPU      float64  `json:"x_pu"`
	IMinPU   float64  `json:"i_min_pu"`
	IMaxPU   float64  `json:"i_max_pu"`
}

// Key returns the canonical (U, V) endpoint pair.
func (e *Edge) Key() [2]int { return [2]int{e.U, e.V} }

func (e *Edge) String() string {
	return fmt.Sprintf("%s (%d,%d)", e.Kind, e.U, e.V)
}

// Graph is the full node/edge collection plus the base power used for all
// per-unit conversions. It is built once per network load and treated as
// immutable afterwards; solves only ever read it.
type Graph struct {
	SBase float64

	nodes map[int]*Node
	order []int
	edges []*Edge
	adj   map[int][]int
}

// NewGraph creates an empty graph with the given base power in MVA.
func NewGraph(sBase float64) *Graph {
	return &Graph{
		SBase: sBase,
		nodes: make(map[int]*Node),
		adj:   make(map[int][]int),
	}
}

// AddNode inserts a node. Duplicate IDs are rejected.
func (g *Graph) AddNode(n Node) error {
	if _, ok := g.nodes[n.ID]; ok {
		return &DataError{Element: fmt.Sprintf("node %d", n.ID), Message: "duplicate node id"}
	}
	nn := n
	g.nodes[n.ID] = &nn
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge inserts an edge. Both endpoints must already exist.
func (g *Graph) AddEdge(e Edge) error {
	el := fmt.Sprintf("%s (%d,%d)", e.Kind, e.U, e.V)
	if _, ok := g.nodes[e.U]; !ok {
		return &DataError{Element: el, Message: fmt.Sprintf("endpoint %d is not a known node", e.U)}
	}
	if _, ok := g.nodes[e.V]; !ok {
		return &DataError{Element: el, Message: fmt.Sprintf("endpoint %d is not a known node", e.V)}
	}
	if e.IMaxPU < e.IMinPU {
		return &DataError{Element: el, Field: "i_max_pu", Message: "current upper bound below lower bound"}
	}
	ee := e
	g.edges = append(g.edges, &ee)
	g.adj[e.U] = append(g.adj[e.U], e.V)
	g.adj[e.V] = append(g.adj[e.V], e.U)
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id int) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(id int) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns node IDs in insertion order.
func (g *Graph) Nodes() []int {
	out := make([]int, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns edges in insertion order, canonical orientation preserved.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Neighbors returns the neighbor IDs of a node.
func (g *Graph) Neighbors(id int) []int {
	adj := g.adj[id]
	out := make([]int, len(adj))
	copy(out, adj)
	return out
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.order) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Subgraph returns the subgraph induced by the given node set: the selected
// nodes plus every edge with both endpoints selected. Edge orientation and
// ordering are preserved. Unknown node IDs are rejected.
func (g *Graph) Subgraph(ids []int) (*Graph, error) {
	keep := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !g.HasNode(id) {
			return nil, &DataError{Element: fmt.Sprintf("node %d", id), Message: "not part of the graph"}
		}
		keep[id] = true
	}

	sub := NewGraph(g.SBase)
	for _, id := range g.order {
		if keep[id] {
			if err := sub.AddNode(*g.nodes[id]); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range g.edges {
		if keep[e.U] && keep[e.V] {
			if err := sub.AddEdge(*e); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}

// SortedNodes returns node IDs in ascending order. Model builders use this
// for deterministic column layout.
func (g *Graph) SortedNodes() []int {
	out := g.Nodes()
	sort.Ints(out)
	return out
}
