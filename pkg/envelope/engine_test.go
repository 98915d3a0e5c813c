package envelope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridopt/envelope-service/pkg/network"
	"github.com/gridopt/envelope-service/pkg/solver"
)

func newTestEngine(t *testing.T, g *network.Graph) *Engine {
	t.Helper()
	cfg := NewConfig()
	cfg.Set("logging.level", "error")
	return NewEngine(g, cfg, solver.NewSimplex(0))
}

func TestEngineSolveOPF(t *testing.T) {
	engine := newTestEngine(t, feederGraph(t))

	result, err := engine.Solve(context.Background(), opfRequest())
	require.NoError(t, err)

	require.Equal(t, "optimal", result.Status)
	require.NotNil(t, result.ObjectiveValue)
	// The feeder can serve all power without curtailment.
	assert.InDelta(t, 0.0, *result.ObjectiveValue, 1e-7)

	// With zero curtailment the flows are fully determined by the balances:
	// node 3 produces 0.05 which flows up toward node 2.
	require.Contains(t, result.Flows, EdgeKey{U: 2, V: 3})
	assert.InDelta(t, -0.05, result.Flows[EdgeKey{U: 2, V: 3}], 1e-7)
	assert.InDelta(t, 0.05, result.Flows[EdgeKey{U: 1, V: 2}], 1e-7)

	assert.Empty(t, result.Envelopes)
	assert.Contains(t, result.Diagnostics, "run_id")
	assert.Equal(t, "gonum-simplex", result.Diagnostics["backend"])
}

func TestEngineSolveDOE(t *testing.T) {
	engine := newTestEngine(t, feederGraph(t))

	result, err := engine.Solve(context.Background(), doeRequest())
	require.NoError(t, err)

	require.Equal(t, "optimal", result.Status)
	require.NotNil(t, result.ObjectiveValue)

	env, ok := result.Envelopes[3]
	require.True(t, ok)
	assert.GreaterOrEqual(t, env.PMax, env.PMin)
	assert.Len(t, result.Envelopes, 1)
}

func TestEngineAlphaSweepBudgetMonotone(t *testing.T) {
	// Raising the curtailment penalty must never increase the optimal
	// curtailment budget.
	g := feederGraph(t)
	info := map[int]float64{3: 0.25}
	backend := solver.NewSimplex(0)

	var budgets []float64
	for _, alpha := range []float64{0.1, 0.5, 1.0, 2.0} {
		req := doeRequest()
		req.Alpha = floatPtr(alpha)

		sub, err := g.Subgraph(req.OperationalNodes)
		require.NoError(t, err)
		m, err := NewModel(sub, req, NewConfig(), info)
		require.NoError(t, err)
		require.NoError(t, m.EmitDCPowerFlow())
		require.NoError(t, m.EmitSecurity())
		require.NoError(t, m.EmitObjective())

		sol, err := backend.Solve(context.Background(), m.Prog)
		require.NoError(t, err)
		require.True(t, sol.IsOptimal(), "alpha=%v", alpha)
		budgets = append(budgets, sol.Value(m.Vars.CurtailmentBudget()))
	}

	for i := 1; i < len(budgets); i++ {
		assert.LessOrEqual(t, budgets[i], budgets[i-1]+1e-6,
			"budget increased between alpha steps %d and %d", i-1, i)
	}
}

func TestEngineInfeasibleReportsStatusOnly(t *testing.T) {
	g := feederGraph(t)
	n, _ := g.Node(3)
	n.VMaxPU = floatPtr(0.95)

	req := doeRequest()
	req.VMin = floatPtr(1.1)
	req.VMax = floatPtr(1.1)

	engine := newTestEngine(t, g)
	result, err := engine.Solve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "infeasible", result.Status)
	assert.Nil(t, result.ObjectiveValue)
	assert.Empty(t, result.Envelopes)
	assert.Empty(t, result.Flows)
}

func TestEngineACUnsupportedByLinearBackend(t *testing.T) {
	req := doeRequest()
	req.Formulation = FlowAC

	engine := newTestEngine(t, feederGraph(t))
	result, err := engine.Solve(context.Background(), req)
	require.NoError(t, err)

	// The cone rows need a conic backend; the simplex refusal surfaces as a
	// status, never as a crash or fabricated numbers.
	assert.Equal(t, "unsupported", result.Status)
	assert.Contains(t, result.Diagnostics, "error")
	assert.Nil(t, result.ObjectiveValue)
}

func TestEngineRejectsInvalidRequest(t *testing.T) {
	engine := newTestEngine(t, feederGraph(t))

	req := opfRequest()
	req.OperationalNodes = []int{1, 2, 99}

	_, err := engine.Solve(context.Background(), req)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestEngineBoundaryInfoFeedsEnvelopeCenter(t *testing.T) {
	// The external component behind child 3 is node 4 with P = 0.3, so the
	// boundary estimate is -0.05 + 0.3 = 0.25. With beta large the envelope
	// center is pulled onto that estimate.
	req := doeRequest()
	req.Alpha = floatPtr(0.0)
	req.Beta = floatPtr(100.0)

	engine := newTestEngine(t, feederGraph(t))
	result, err := engine.Solve(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, "optimal", result.Status)
	env := result.Envelopes[3]
	assert.InDelta(t, 0.25, (env.PMax+env.PMin)/2, 1e-6)
}
