package envelope

import (
	"fmt"

	"github.com/gridopt/envelope-service/pkg/program"
)

// EmitACPowerFlow adds the relaxed DistFlow physics: active and reactive
// nodal balances with ohmic loss terms, per-line voltage drops over squared
// voltages, and the second-order-cone current-voltage coupling. Squared
// voltage bounds are carried as column bounds; the parent voltage is anchored
// to the vertex value.
func (m *Model) EmitACPowerFlow() error {
	m.emitACBalanceRows()
	m.emitVoltageDropRows()
	m.emitConeRows()
	m.emitParentVoltageAnchors()
	return nil
}

// emitACBalanceRows mirrors the DC balances with loss terms on outgoing
// edges: every edge leaving a node carries its flow plus the ohmic loss.
func (m *Model) emitACBalanceRows() {
	for n, id := range m.Nodes {
		for vp := 0; vp < 2; vp++ {
			for vv := 0; vv < 2; vv++ {
				pCols, pVals := []int{}, []float64{}
				qCols, qVals := []int{}, []float64{}
				for l, e := range m.Lines {
					if e.V == id {
						pCols = append(pCols, m.Vars.F(l, vp, vv))
						pVals = append(pVals, 1)
						qCols = append(qCols, m.Vars.G(l, vp, vv))
						qVals = append(qVals, 1)
					} else if e.U == id {
						pCols = append(pCols, m.Vars.F(l, vp, vv), m.Vars.ISq(l, vp, vv))
						pVals = append(pVals, -1, -e.RPU)
						qCols = append(qCols, m.Vars.G(l, vp, vv), m.Vars.ISq(l, vp, vv))
						qVals = append(qVals, -1, -e.XPU)
					}
				}
				pCols = append(pCols, m.Vars.PPrime(n, vp, vv))
				pVals = append(pVals, -1)
				qCols = append(qCols, m.Vars.QPrime(n, vp, vv))
				qVals = append(qVals, -1)
				if pp, ok := m.parentPos[id]; ok {
					pCols = append(pCols, m.Vars.PPlus(pp, vp, vv))
					pVals = append(pVals, 1)
					qCols = append(qCols, m.Vars.QPlus(pp, vp, vv))
					qVals = append(qVals, 1)
				}
				if c, ok := m.childPos[id]; ok && m.Vars.pMinus >= 0 {
					pCols = append(pCols, m.Vars.PMinus(c, vp, vv))
					pVals = append(pVals, -1)
					qCols = append(qCols, m.Vars.QMinus(c, vp, vv))
					qVals = append(qVals, -1)
				}
				m.Prog.AddEqRow(fmt.Sprintf("ac_balance_p[%d](%d,%d)", id, vp, vv), pCols, pVals, 0)
				m.Prog.AddEqRow(fmt.Sprintf("ac_balance_q[%d](%d,%d)", id, vp, vv), qCols, qVals, 0)
			}
		}
	}
}

// emitVoltageDropRows encodes, per edge,
// Vsq[u] - Vsq[v] = 2(R*F + X*G) + (R^2 + X^2)*Isq.
func (m *Model) emitVoltageDropRows() {
	for l, e := range m.Lines {
		u := m.nodePos[e.U]
		v := m.nodePos[e.V]
		zSq := e.RPU*e.RPU + e.XPU*e.XPU
		for vp := 0; vp < 2; vp++ {
			for vv := 0; vv < 2; vv++ {
				m.Prog.AddEqRow(
					fmt.Sprintf("voltage_drop%s(%d,%d)", lineLabel(e), vp, vv),
					[]int{
						m.Vars.VSq(u, vp, vv), m.Vars.VSq(v, vp, vv),
						m.Vars.F(l, vp, vv), m.Vars.G(l, vp, vv), m.Vars.ISq(l, vp, vv),
					},
					[]float64{1, -1, -2 * e.RPU, -2 * e.XPU, -zSq},
					0,
				)
			}
		}
	}
}

// emitConeRows adds the relaxation Vsq[u]*Isq >= F^2 + G^2 per edge as a
// quadratic row: F^2 + G^2 - Vsq[u]*Isq <= 0. A purely linear backend will
// reject the program as unsupported rather than mis-solve it.
func (m *Model) emitConeRows() {
	for l, e := range m.Lines {
		u := m.nodePos[e.U]
		for vp := 0; vp < 2; vp++ {
			for vv := 0; vv < 2; vv++ {
				f := m.Vars.F(l, vp, vv)
				g := m.Vars.G(l, vp, vv)
				m.Prog.AddQuadRow(
					fmt.Sprintf("cone%s(%d,%d)", lineLabel(e), vp, vv),
					program.NegInf(), nil, nil,
					[]program.QuadTerm{
						{I: f, J: f, Val: 1},
						{I: g, J: g, Val: 1},
						{I: m.Vars.VSq(u, vp, vv), J: m.Vars.ISq(l, vp, vv), Val: -1},
					},
					0,
				)
			}
		}
	}
}

// emitParentVoltageAnchors pins each parent's squared voltage to the vertex
// value, fixing the reference magnitude the drops propagate from.
func (m *Model) emitParentVoltageAnchors() {
	for _, id := range m.Parents {
		n := m.nodePos[id]
		for vp := 0; vp < 2; vp++ {
			for vv := 0; vv < 2; vv++ {
				m.Prog.AddEqRow(
					fmt.Sprintf("anchor[%d](%d,%d)", id, vp, vv),
					[]int{m.Vars.VSq(n, vp, vv)},
					[]float64{1},
					m.VP[vv]*m.VP[vv],
				)
			}
		}
	}
}
