package envelope

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gridopt/envelope-service/pkg/network"
	"github.com/gridopt/envelope-service/pkg/program"
	"github.com/gridopt/envelope-service/pkg/solver"
)

// Engine runs envelope computations over one immutable network graph. Each
// Solve builds a fresh model, submits it to the configured solver backend and
// maps the outcome into a Result. Engines are safe for concurrent solves
// because nothing is shared but the read-only graph and configuration.
type Engine struct {
	graph  *network.Graph
	config *Config
	solver solver.Solver
	logger zerolog.Logger
}

// NewEngine creates an engine over a graph. The solver backend is passed in
// explicitly; the engine never reads backend credentials or configuration
// from ambient state.
func NewEngine(g *network.Graph, cfg *Config, backend solver.Solver) *Engine {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Engine{
		graph:  g,
		config: cfg,
		solver: backend,
		logger: cfg.CreateLogger(),
	}
}

// Solve validates the request, assembles the program and runs the backend.
//
// Validation and model-building failures return an error. Solver-side
// failures do not: they come back as a Result whose Status reports the
// outcome, with diagnostics and no fabricated numbers.
func (e *Engine) Solve(ctx context.Context, req *SolveRequest) (*Result, error) {
	runID := uuid.NewString()
	log := e.logger.With().Str("run_id", runID).
		Str("formulation", req.Formulation.String()).
		Str("objective", req.Objective.String()).Logger()

	if err := req.Validate(e.graph); err != nil {
		log.Error().Err(err).Msg("invalid solve request")
		return nil, err
	}

	sub, err := e.graph.Subgraph(req.OperationalNodes)
	if err != nil {
		return nil, err
	}

	var info map[int]float64
	if req.Objective == ObjectiveDOE {
		operational := make(map[int]bool, len(req.OperationalNodes))
		for _, id := range req.OperationalNodes {
			operational[id] = true
		}
		children := make(map[int]bool, len(req.ChildrenNodes))
		for _, id := range req.ChildrenNodes {
			children[id] = true
		}
		info = network.BoundaryInfo(e.graph, operational, children)
		log.Debug().Int("children", len(info)).Msg("boundary information aggregated")
	}

	m, err := NewModel(sub, req, e.config, info)
	if err != nil {
		return nil, err
	}
	if err := e.emitConstraints(m); err != nil {
		log.Error().Err(err).Msg("constraint emission failed")
		return nil, err
	}
	if err := m.EmitObjective(); err != nil {
		return nil, err
	}

	log.Info().
		Int("columns", m.Prog.NumVars()).
		Int("rows", m.Prog.NumRows()).
		Msg("program assembled")

	started := time.Now()
	sol, err := e.solver.Solve(ctx, m.Prog)
	elapsed := time.Since(started)

	result := &Result{
		Diagnostics: map[string]string{
			"run_id":   runID,
			"backend":  e.solver.Name(),
			"columns":  fmt.Sprintf("%d", m.Prog.NumVars()),
			"rows":     fmt.Sprintf("%d", m.Prog.NumRows()),
			"solve_ms": fmt.Sprintf("%d", elapsed.Milliseconds()),
		},
	}
	if err != nil {
		log.Warn().Err(err).Msg("solver backend failed")
		result.Status = "error"
		result.Diagnostics["error"] = err.Error()
		if sol != nil {
			result.Status = sol.Status.String()
		}
		return result, nil
	}

	result.Status = sol.Status.String()
	if !sol.HasSolution() {
		log.Warn().Str("status", result.Status).Str("message", sol.Message).Msg("solve did not reach optimality")
		if sol.Message != "" {
			result.Diagnostics["message"] = sol.Message
		}
		return result, nil
	}

	obj := sol.Objective
	result.ObjectiveValue = &obj
	result.Flows = e.extractFlows(m, sol)
	if req.Objective == ObjectiveDOE {
		result.Envelopes = e.extractEnvelopes(m, sol)
	}

	log.Info().
		Float64("objective", obj).
		Dur("elapsed", elapsed).
		Msg("solve complete")
	return result, nil
}

func (e *Engine) emitConstraints(m *Model) error {
	switch m.Formulation {
	case FlowDC:
		if err := m.EmitDCPowerFlow(); err != nil {
			return err
		}
	case FlowAC:
		if err := m.EmitACPowerFlow(); err != nil {
			return err
		}
	}
	return m.EmitSecurity()
}

// extractEnvelopes reads the envelope corners per child. Corner 0 is the
// upper corner, so it maps to PMax.
func (e *Engine) extractEnvelopes(m *Model, sol *program.Solution) map[int]Envelope {
	out := make(map[int]Envelope, len(m.Children))
	for c, id := range m.Children {
		out[id] = Envelope{
			PMax: sol.Value(m.Vars.PCSet(c, 0)),
			PMin: sol.Value(m.Vars.PCSet(c, 1)),
		}
	}
	return out
}

// extractFlows reads line flows at the requested scenario vertex.
func (e *Engine) extractFlows(m *Model, sol *program.Solution) map[EdgeKey]float64 {
	vp, vv := m.flowVertex[0], m.flowVertex[1]
	out := make(map[EdgeKey]float64, len(m.Lines))
	for l, edge := range m.Lines {
		out[EdgeKey{U: edge.U, V: edge.V}] = sol.Value(m.Vars.F(l, vp, vv))
	}
	return out
}
