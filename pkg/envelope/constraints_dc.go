package envelope

import (
	"fmt"
	"math"

	"github.com/gridopt/envelope-service/pkg/network"
)

// EmitDCPowerFlow adds the linearized flow physics: flow definition on lines,
// the current-flow link on every edge, nodal balances and voltage pins, each
// replicated over the four scenario vertices.
func (m *Model) EmitDCPowerFlow() error {
	if err := m.emitDCFlowRows(); err != nil {
		return err
	}
	m.emitCurrentRows()
	m.emitDCBalanceRows()
	m.emitVoltagePins()
	return nil
}

// emitDCFlowRows encodes F = V_P^2 * b * (theta_u - theta_v) for every line.
// Transformers have no susceptance in this formulation and carry no flow
// definition; their flow is pinned only through the nodal balances.
func (m *Model) emitDCFlowRows() error {
	for l, e := range m.Lines {
		if e.BPU == nil {
			if e.Kind == network.KindLine {
				return &ModelError{Edge: lineLabel(e), Message: "line without per-unit susceptance"}
			}
			continue
		}
		b := *e.BPU
		u := m.nodePos[e.U]
		v := m.nodePos[e.V]
		for vp := 0; vp < 2; vp++ {
			for vv := 0; vv < 2; vv++ {
				vSq := m.VP[vv] * m.VP[vv]
				m.Prog.AddEqRow(
					fmt.Sprintf("dc_flow%s(%d,%d)", lineLabel(e), vp, vv),
					[]int{m.Vars.F(l, vp, vv), m.Vars.Theta(u, vp, vv), m.Vars.Theta(v, vp, vv)},
					[]float64{1, -vSq * b, vSq * b},
					0,
				)
			}
		}
	}
	return nil
}

// emitCurrentRows links line current to active flow, sqrt(3)*I*V_P = F,
// on every edge including transformers so their thermal bounds still bind.
func (m *Model) emitCurrentRows() {
	sqrt3 := math.Sqrt(3)
	for l, e := range m.Lines {
		for vp := 0; vp < 2; vp++ {
			for vv := 0; vv < 2; vv++ {
				m.Prog.AddEqRow(
					fmt.Sprintf("current%s(%d,%d)", lineLabel(e), vp, vv),
					[]int{m.Vars.I(l, vp, vv), m.Vars.F(l, vp, vv)},
					[]float64{sqrt3 * m.VP[vv], -1},
					0,
				)
			}
		}
	}
}

// emitDCBalanceRows writes one nodal balance per node and vertex: the net
// flow into the node equals its optimized power, shifted by the boundary
// exchange at parents and children.
func (m *Model) emitDCBalanceRows() {
	for n, id := range m.Nodes {
		for vp := 0; vp < 2; vp++ {
			for vv := 0; vv < 2; vv++ {
				cols := []int{}
				vals := []float64{}
				for l, e := range m.Lines {
					if e.V == id {
						cols = append(cols, m.Vars.F(l, vp, vv))
						vals = append(vals, 1)
					} else if e.U == id {
						cols = append(cols, m.Vars.F(l, vp, vv))
						vals = append(vals, -1)
					}
				}
				cols = append(cols, m.Vars.PPrime(n, vp, vv))
				vals = append(vals, -1)
				if pp, ok := m.parentPos[id]; ok {
					cols = append(cols, m.Vars.PPlus(pp, vp, vv))
					vals = append(vals, 1)
				}
				if c, ok := m.childPos[id]; ok && m.Vars.pMinus >= 0 {
					cols = append(cols, m.Vars.PMinus(c, vp, vv))
					vals = append(vals, -1)
				}
				m.Prog.AddEqRow(fmt.Sprintf("balance[%d](%d,%d)", id, vp, vv), cols, vals, 0)
			}
		}
	}
}

// emitVoltagePins fixes every nodal voltage magnitude to the vertex value.
// Child nodes additionally carry band bounds on the same column, so a vertex
// voltage outside a child's band makes the program infeasible rather than
// silently clipping.
func (m *Model) emitVoltagePins() {
	for n, id := range m.Nodes {
		for vp := 0; vp < 2; vp++ {
			for vv := 0; vv < 2; vv++ {
				m.Prog.AddEqRow(
					fmt.Sprintf("voltage[%d](%d,%d)", id, vp, vv),
					[]int{m.Vars.V(n, vp, vv)},
					[]float64{1},
					m.VP[vv],
				)
			}
		}
	}
}
