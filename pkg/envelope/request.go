package envelope

import (
	"fmt"

	"github.com/gridopt/envelope-service/pkg/network"
)

// FlowFormulation selects the power-flow constraint variant.
type FlowFormulation int

const (
	FlowDC FlowFormulation = iota // linearized, angle-based
	FlowAC                        // relaxed DistFlow with squared variables
)

func (f FlowFormulation) String() string {
	switch f {
	case FlowDC:
		return "dc"
	case FlowAC:
		return "ac"
	default:
		return fmt.Sprintf("FlowFormulation(%d)", int(f))
	}
}

// ObjectiveKind selects the objective variant.
type ObjectiveKind int

const (
	ObjectiveOPF ObjectiveKind = iota // minimize curtailment, no envelope
	ObjectiveDOE                      // maximize envelope volume with penalties
)

func (o ObjectiveKind) String() string {
	switch o {
	case ObjectiveOPF:
		return "opf"
	case ObjectiveDOE:
		return "doe"
	default:
		return fmt.Sprintf("ObjectiveKind(%d)", int(o))
	}
}

// SolveRequest configures one solve over an operational perimeter. Pointer
// fields are optional; nil falls back to the engine Config defaults. Alpha
// and Beta are mandatory for DOE solves.
type SolveRequest struct {
	Formulation FlowFormulation `json:"formulation"`
	Objective   ObjectiveKind   `json:"objective"`

	OperationalNodes []int `json:"operational_nodes"`
	ParentNodes      []int `json:"parent_nodes"`
	ChildrenNodes    []int `json:"children_nodes"`

	Alpha *float64 `json:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`

	// Boundary exchange bounds at parent nodes (p.u.).
	PMin *float64 `json:"p_min,omitempty"`
	PMax *float64 `json:"p_max,omitempty"`

	// Reactive exchange bounds, AC only.
	QMin *float64 `json:"q_min,omitempty"`
	QMax *float64 `json:"q_max,omitempty"`

	// Angle bounds, DC only (radians).
	ThetaMin *float64 `json:"theta_min,omitempty"`
	ThetaMax *float64 `json:"theta_max,omitempty"`

	// Voltage magnitude band; also defines the two voltage vertices.
	VMin *float64 `json:"v_min,omitempty"`
	VMax *float64 `json:"v_max,omitempty"`

	// Upper bound on the curtailment budget (p.u.). Defaults to the sum of
	// absolute nodal powers of the operational area.
	CurtailmentLimit *float64 `json:"curtailment_limit,omitempty"`

	// FlowVertex selects the scenario vertex whose flows are reported.
	FlowVertex [2]int `json:"flow_vertex"`
}

// Validate checks the request against the full graph before any model work.
func (r *SolveRequest) Validate(g *network.Graph) error {
	if len(r.OperationalNodes) == 0 {
		return &ConfigurationError{Field: "operational_nodes", Message: "must not be empty"}
	}

	op := make(map[int]bool, len(r.OperationalNodes))
	for _, id := range r.OperationalNodes {
		if !g.HasNode(id) {
			return &ConfigurationError{Field: "operational_nodes", Message: fmt.Sprintf("node %d is not part of the graph", id)}
		}
		op[id] = true
	}
	parents := make(map[int]bool, len(r.ParentNodes))
	for _, id := range r.ParentNodes {
		if !op[id] {
			return &ConfigurationError{Field: "parent_nodes", Message: fmt.Sprintf("node %d is not in the operational set", id)}
		}
		parents[id] = true
	}
	for _, id := range r.ChildrenNodes {
		if !op[id] {
			return &ConfigurationError{Field: "children_nodes", Message: fmt.Sprintf("node %d is not in the operational set", id)}
		}
		if parents[id] {
			return &ConfigurationError{Field: "children_nodes", Message: fmt.Sprintf("node %d cannot be both parent and child", id)}
		}
	}

	if r.Objective == ObjectiveDOE {
		if len(r.ChildrenNodes) == 0 {
			return &ConfigurationError{Field: "children_nodes", Message: "DOE requires at least one child node"}
		}
		if len(r.ParentNodes) == 0 {
			return &ConfigurationError{Field: "parent_nodes", Message: "DOE requires at least one parent node"}
		}
		if r.Alpha == nil {
			return &ConfigurationError{Field: "alpha", Message: "mandatory for DOE"}
		}
		if r.Beta == nil {
			return &ConfigurationError{Field: "beta", Message: "mandatory for DOE"}
		}
	}
	if r.Alpha != nil && *r.Alpha < 0 {
		return &ConfigurationError{Field: "alpha", Message: "must be non-negative"}
	}
	if r.Beta != nil && *r.Beta < 0 {
		return &ConfigurationError{Field: "beta", Message: "must be non-negative"}
	}
	if r.PMin != nil && r.PMax != nil && *r.PMax < *r.PMin {
		return &ConfigurationError{Field: "p_max", Message: "below p_min"}
	}
	if r.VMin != nil && r.VMax != nil && *r.VMax < *r.VMin {
		return &ConfigurationError{Field: "v_max", Message: "below v_min"}
	}
	for _, v := range r.FlowVertex {
		if v != 0 && v != 1 {
			return &ConfigurationError{Field: "flow_vertex", Message: "indices must be 0 or 1"}
		}
	}
	return nil
}

// EdgeKey identifies a flow by the canonical orientation of its edge.
type EdgeKey struct {
	U int `json:"u"`
	V int `json:"v"`
}

func (k EdgeKey) String() string { return fmt.Sprintf("(%d,%d)", k.U, k.V) }

// MarshalText lets flow maps keyed by EdgeKey serialize to JSON.
func (k EdgeKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Envelope is the safe active-power interval for one child node, in per-unit.
type Envelope struct {
	PMin float64 `json:"p_min"`
	PMax float64 `json:"p_max"`
}

// Result is the structured outcome of one solve. On non-optimal status only
// Status and Diagnostics are populated; no partial numbers are fabricated.
type Result struct {
	Status         string              `json:"status"`
	ObjectiveValue *float64            `json:"objective_value,omitempty"`
	Envelopes      map[int]Envelope    `json:"envelopes,omitempty"`
	Flows          map[EdgeKey]float64 `json:"flows,omitempty"`
	Diagnostics    map[string]string   `json:"diagnostics"`
}
