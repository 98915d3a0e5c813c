package envelope

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridopt/envelope-service/pkg/network"
	"github.com/gridopt/envelope-service/pkg/program"
)

func rowByName(t *testing.T, p *program.Program, name string) int {
	t.Helper()
	for r, n := range p.RowNames() {
		if n == name {
			return r
		}
	}
	t.Fatalf("row %q not found", name)
	return -1
}

func hasRow(p *program.Program, name string) bool {
	for _, n := range p.RowNames() {
		if n == name {
			return true
		}
	}
	return false
}

func coeff(p *program.Program, row, col int) float64 {
	for _, nz := range p.RowEntries(row) {
		if nz.Col == col {
			return nz.Val
		}
	}
	return 0
}

func TestDCFlowCoefficients(t *testing.T) {
	m := buildModel(t, opfRequest(), nil)
	require.NoError(t, m.EmitDCPowerFlow())

	// F = V_P^2 * b * (theta_u - theta_v) with V_P = 1 and b = 2: the row is
	// F - 2*theta_u + 2*theta_v = 0, so a 0.1 rad angle difference forces a
	// flow of 0.2.
	row := rowByName(t, m.Prog, "dc_flow[1,2](0,0)")
	u, v := m.nodePos[1], m.nodePos[2]
	fC := coeff(m.Prog, row, m.Vars.F(0, 0, 0))
	uC := coeff(m.Prog, row, m.Vars.Theta(u, 0, 0))
	vC := coeff(m.Prog, row, m.Vars.Theta(v, 0, 0))
	assert.Equal(t, 1.0, fC)
	assert.InDelta(t, -2.0, uC, 1e-12)
	assert.InDelta(t, 2.0, vC, 1e-12)

	dTheta := 0.1
	flow := -(uC*dTheta + vC*0) / fC
	assert.InDelta(t, 0.2, flow, 1e-12)

	assert.Equal(t, 0.0, m.Prog.RowLower[row])
	assert.Equal(t, 0.0, m.Prog.RowUpper[row])
}

func TestCurrentFlowLink(t *testing.T) {
	m := buildModel(t, opfRequest(), nil)
	require.NoError(t, m.EmitDCPowerFlow())

	// sqrt(3) * I * V_P = F with V_P = 1.
	row := rowByName(t, m.Prog, "current[1,2](0,1)")
	assert.InDelta(t, math.Sqrt(3), coeff(m.Prog, row, m.Vars.I(0, 0, 1)), 1e-12)
	assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.F(0, 0, 1)))
}

func TestTransformerExemptFromFlowLinearization(t *testing.T) {
	g := network.NewGraph(1.0)
	for id := 1; id <= 3; id++ {
		require.NoError(t, g.AddNode(network.Node{ID: id, VnKV: 20}))
	}
	b := 2.0
	require.NoError(t, g.AddEdge(network.Edge{U: 1, V: 2, Kind: network.KindLine, BPU: &b, IMinPU: -10, IMaxPU: 10}))
	require.NoError(t, g.AddEdge(network.Edge{U: 2, V: 3, Kind: network.KindTransformer, IMinPU: -1000, IMaxPU: 1000}))

	req := flatVoltage(&SolveRequest{
		Formulation:      FlowDC,
		Objective:        ObjectiveOPF,
		OperationalNodes: []int{1, 2, 3},
		ParentNodes:      []int{1},
	})
	require.NoError(t, req.Validate(g))
	sub, err := g.Subgraph(req.OperationalNodes)
	require.NoError(t, err)
	m, err := NewModel(sub, req, NewConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, m.EmitDCPowerFlow())

	// The line gets a flow definition; the transformer does not, but it
	// still appears in the current link and the balances.
	assert.True(t, hasRow(m.Prog, "dc_flow[1,2](0,0)"))
	assert.False(t, hasRow(m.Prog, "dc_flow[2,3](0,0)"))
	assert.True(t, hasRow(m.Prog, "current[2,3](0,0)"))

	row := rowByName(t, m.Prog, "balance[3](0,0)")
	assert.Equal(t, 1.0, coeff(m.Prog, row, m.Vars.F(1, 0, 0)))
}

func TestLineWithoutSusceptanceIsModelError(t *testing.T) {
	g := network.NewGraph(1.0)
	require.NoError(t, g.AddNode(network.Node{ID: 1, VnKV: 20}))
	require.NoError(t, g.AddNode(network.Node{ID: 2, VnKV: 20}))
	require.NoError(t, g.AddEdge(network.Edge{U: 1, V: 2, Kind: network.KindLine, IMinPU: -1, IMaxPU: 1}))

	req := flatVoltage(&SolveRequest{
		Formulation:      FlowDC,
		OperationalNodes: []int{1, 2},
		ParentNodes:      []int{1},
	})
	sub, err := g.Subgraph(req.OperationalNodes)
	require.NoError(t, err)
	m, err := NewModel(sub, req, NewConfig(), nil)
	require.NoError(t, err)

	err = m.EmitDCPowerFlow()
	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "[1,2]", modelErr.Edge)
}

func TestBalanceRowBoundarySigns(t *testing.T) {
	m := buildModel(t, doeRequest(), map[int]float64{3: 0.25})
	require.NoError(t, m.EmitDCPowerFlow())

	// Parent node 1: only edge (1,2) leaves it, so the net inflow is -F,
	// and the import P+ enters with opposite sign to P'.
	row := rowByName(t, m.Prog, "balance[1](0,0)")
	assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.F(0, 0, 0)))
	assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.PPrime(m.nodePos[1], 0, 0)))
	assert.Equal(t, 1.0, coeff(m.Prog, row, m.Vars.PPlus(0, 0, 0)))

	// Child node 3: edge (2,3) ends there, and the export P- adds to P'.
	row = rowByName(t, m.Prog, "balance[3](0,0)")
	assert.Equal(t, 1.0, coeff(m.Prog, row, m.Vars.F(1, 0, 0)))
	assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.PPrime(m.nodePos[3], 0, 0)))
	assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.PMinus(0, 0, 0)))
}

func TestCurtailmentRows(t *testing.T) {
	m := buildModel(t, opfRequest(), nil)
	require.NoError(t, m.EmitSecurity())

	// curt[2] + P'[2] = P[2].
	row := rowByName(t, m.Prog, "curtail[2](0,0)")
	assert.Equal(t, 1.0, coeff(m.Prog, row, m.Vars.Curt(m.nodePos[2], 0, 0)))
	assert.Equal(t, 1.0, coeff(m.Prog, row, m.Vars.PPrime(m.nodePos[2], 0, 0)))
	assert.InDelta(t, 0.1, m.Prog.RowLower[row], 1e-12)
	assert.InDelta(t, 0.1, m.Prog.RowUpper[row], 1e-12)

	// One budget cap per scenario vertex, covering all z columns.
	for _, name := range []string{"budget(0,0)", "budget(0,1)", "budget(1,0)", "budget(1,1)"} {
		row := rowByName(t, m.Prog, name)
		entries := m.Prog.RowEntries(row)
		assert.Len(t, entries, len(m.Nodes)+1)
		assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.CurtailmentBudget()))
	}
}

func TestEnvelopeRows(t *testing.T) {
	m := buildModel(t, doeRequest(), map[int]float64{3: 0.25})
	require.NoError(t, m.EmitSecurity())

	// The boundary exchange binds to the vp corner at both voltage vertices.
	for vv := 0; vv < 2; vv++ {
		row := rowByName(t, m.Prog, fmt.Sprintf("corner_tie[3](0,%d)", vv))
		assert.Equal(t, 1.0, coeff(m.Prog, row, m.Vars.PMinus(0, 0, vv)))
		assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.PCSet(0, 0)))
	}

	// P_C_set[3,0] >= P_C_set[3,1].
	row := rowByName(t, m.Prog, "ordering[3]")
	assert.Equal(t, 1.0, coeff(m.Prog, row, m.Vars.PCSet(0, 0)))
	assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.PCSet(0, 1)))
	assert.Equal(t, 0.0, m.Prog.RowLower[row])

	// Envelope center deviation from the boundary estimate.
	row = rowByName(t, m.Prog, "dso_upper[3]")
	assert.Equal(t, 0.5, coeff(m.Prog, row, m.Vars.PCSet(0, 0)))
	assert.Equal(t, 0.5, coeff(m.Prog, row, m.Vars.PCSet(0, 1)))
	assert.Equal(t, -1.0, coeff(m.Prog, row, m.Vars.DiffDSO(0)))
	assert.InDelta(t, 0.25, m.Prog.RowUpper[row], 1e-12)

	assert.True(t, hasRow(m.Prog, "volume"))
	assert.True(t, hasRow(m.Prog, "center_gap"))
}

func TestACEmitsQuadraticCone(t *testing.T) {
	req := doeRequest()
	req.Formulation = FlowAC
	m := buildModel(t, req, map[int]float64{3: 0.25})
	require.NoError(t, m.EmitACPowerFlow())

	assert.True(t, m.Prog.HasQuadRows())
	assert.True(t, hasRow(m.Prog, "ac_balance_p[2](0,0)"))
	assert.True(t, hasRow(m.Prog, "ac_balance_q[2](0,0)"))
	assert.True(t, hasRow(m.Prog, "voltage_drop[1,2](0,0)"))
	assert.True(t, hasRow(m.Prog, "anchor[1](0,0)"))

	// Voltage drop carries -2R, -2X and -(R^2+X^2) on the squared current.
	row := rowByName(t, m.Prog, "voltage_drop[1,2](0,0)")
	assert.InDelta(t, -0.02, coeff(m.Prog, row, m.Vars.F(0, 0, 0)), 1e-12)
	assert.InDelta(t, -0.04, coeff(m.Prog, row, m.Vars.G(0, 0, 0)), 1e-12)
	assert.InDelta(t, -(0.01*0.01 + 0.02*0.02), coeff(m.Prog, row, m.Vars.ISq(0, 0, 0)), 1e-15)
}

func TestObjectiveCosts(t *testing.T) {
	t.Run("opf minimizes weighted budget", func(t *testing.T) {
		req := opfRequest()
		req.Alpha = floatPtr(2.0)
		m := buildModel(t, req, nil)
		require.NoError(t, m.EmitObjective())

		assert.False(t, m.Prog.Maximize)
		assert.Equal(t, 2.0, m.Prog.ColCosts[m.Vars.CurtailmentBudget()])
	})

	t.Run("opf zero alpha falls back to plain budget", func(t *testing.T) {
		req := opfRequest()
		req.Alpha = floatPtr(0.0)
		m := buildModel(t, req, nil)
		require.NoError(t, m.EmitObjective())

		assert.Equal(t, 1.0, m.Prog.ColCosts[m.Vars.CurtailmentBudget()])
	})

	t.Run("doe maximizes volume with penalties", func(t *testing.T) {
		req := doeRequest()
		req.Alpha = floatPtr(0.7)
		req.Beta = floatPtr(0.3)
		m := buildModel(t, req, map[int]float64{3: 0.25})
		require.NoError(t, m.EmitObjective())

		assert.True(t, m.Prog.Maximize)
		assert.Equal(t, 1.0, m.Prog.ColCosts[m.Vars.EnvelopeVolume()])
		assert.Equal(t, -0.7, m.Prog.ColCosts[m.Vars.CurtailmentBudget()])
		assert.Equal(t, -0.3, m.Prog.ColCosts[m.Vars.EnvelopeCenterGap()])
	})
}
