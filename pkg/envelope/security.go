package envelope

import (
	"fmt"
)

// EmitSecurity adds the operational security constraints shared by both flow
// formulations: the curtailment linearization and budget, and for DOE runs
// the envelope corner machinery. Pure bound constraints (thermal, angle,
// boundary exchange, child voltage, sign consistency) already live on the
// columns.
func (m *Model) EmitSecurity() error {
	m.emitCurtailmentRows()
	if m.Objective == ObjectiveDOE {
		m.emitEnvelopeRows()
	}
	return nil
}

// emitCurtailmentRows defines curt[n] = P[n] - P'[n], its absolute value
// z[n] >= |curt[n]|, and caps the per-vertex total by the shared budget.
func (m *Model) emitCurtailmentRows() {
	for vp := 0; vp < 2; vp++ {
		for vv := 0; vv < 2; vv++ {
			sumCols := make([]int, 0, len(m.Nodes)+1)
			sumVals := make([]float64, 0, len(m.Nodes)+1)
			for n, id := range m.Nodes {
				curt := m.Vars.Curt(n, vp, vv)
				z := m.Vars.Z(n, vp, vv)
				m.Prog.AddEqRow(
					fmt.Sprintf("curtail[%d](%d,%d)", id, vp, vv),
					[]int{curt, m.Vars.PPrime(n, vp, vv)},
					[]float64{1, 1},
					m.P[id],
				)
				m.Prog.AddGeRow(
					fmt.Sprintf("abs_pos[%d](%d,%d)", id, vp, vv),
					[]int{z, curt}, []float64{1, -1}, 0,
				)
				m.Prog.AddGeRow(
					fmt.Sprintf("abs_neg[%d](%d,%d)", id, vp, vv),
					[]int{z, curt}, []float64{1, 1}, 0,
				)
				sumCols = append(sumCols, z)
				sumVals = append(sumVals, 1)
			}
			sumCols = append(sumCols, m.Vars.CurtailmentBudget())
			sumVals = append(sumVals, -1)
			m.Prog.AddLeRow(fmt.Sprintf("budget(%d,%d)", vp, vv), sumCols, sumVals, 0)
		}
	}
}

// emitEnvelopeRows ties each child's boundary exchange to the envelope
// corners, orders the corners, and accumulates the volume and the deviation
// from the boundary information estimate.
//
// The corner for active-power vertex vp binds at both voltage vertices, so
// an envelope value is only admitted when it is feasible under every voltage
// extreme.
func (m *Model) emitEnvelopeRows() {
	volCols := make([]int, 0, len(m.Children)+1)
	volVals := make([]float64, 0, len(m.Children)+1)
	gapCols := make([]int, 0, len(m.Children)+1)
	gapVals := make([]float64, 0, len(m.Children)+1)

	for c, id := range m.Children {
		for vp := 0; vp < 2; vp++ {
			corner := m.Vars.PCSet(c, vp)
			for vv := 0; vv < 2; vv++ {
				m.Prog.AddEqRow(
					fmt.Sprintf("corner_tie[%d](%d,%d)", id, vp, vv),
					[]int{m.Vars.PMinus(c, vp, vv), corner},
					[]float64{1, -1},
					0,
				)
			}
		}

		// Upper corner is index 0 by convention.
		m.Prog.AddGeRow(
			fmt.Sprintf("ordering[%d]", id),
			[]int{m.Vars.PCSet(c, 0), m.Vars.PCSet(c, 1)},
			[]float64{1, -1},
			0,
		)
		m.Prog.AddEqRow(
			fmt.Sprintf("width[%d]", id),
			[]int{m.Vars.Aux(c), m.Vars.PCSet(c, 0), m.Vars.PCSet(c, 1)},
			[]float64{1, -1, 1},
			0,
		)

		info := m.Info[id]
		m.Prog.AddLeRow(
			fmt.Sprintf("dso_upper[%d]", id),
			[]int{m.Vars.PCSet(c, 0), m.Vars.PCSet(c, 1), m.Vars.DiffDSO(c)},
			[]float64{0.5, 0.5, -1},
			info,
		)
		m.Prog.AddGeRow(
			fmt.Sprintf("dso_lower[%d]", id),
			[]int{m.Vars.PCSet(c, 0), m.Vars.PCSet(c, 1), m.Vars.DiffDSO(c)},
			[]float64{0.5, 0.5, 1},
			info,
		)

		volCols = append(volCols, m.Vars.Aux(c))
		volVals = append(volVals, 1)
		gapCols = append(gapCols, m.Vars.DiffDSO(c))
		gapVals = append(gapVals, 1)
	}

	volCols = append(volCols, m.Vars.EnvelopeVolume())
	volVals = append(volVals, -1)
	m.Prog.AddEqRow("volume", volCols, volVals, 0)

	gapCols = append(gapCols, m.Vars.EnvelopeCenterGap())
	gapVals = append(gapVals, -1)
	m.Prog.AddEqRow("center_gap", gapCols, gapVals, 0)
}
