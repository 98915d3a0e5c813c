package envelope

import (
	"fmt"
	"math"
	"sort"

	"github.com/gridopt/envelope-service/pkg/network"
	"github.com/gridopt/envelope-service/pkg/program"
)

// params are the resolved numeric inputs of one model: request values where
// given, Config defaults otherwise. They are fixed at build time and
// immutable for the life of the Model.
type params struct {
	alpha, beta        float64
	pMin, pMax         float64
	thetaMin, thetaMax float64
	vMin, vMax         float64
	qMin, qMax         *float64
	curtailmentLimit   *float64
}

func resolveParams(req *SolveRequest, cfg *Config) params {
	pick := func(v *float64, def float64) float64 {
		if v != nil {
			return *v
		}
		return def
	}
	return params{
		alpha:            pick(req.Alpha, cfg.Alpha()),
		beta:             pick(req.Beta, cfg.Beta()),
		pMin:             pick(req.PMin, cfg.PMin()),
		pMax:             pick(req.PMax, cfg.PMax()),
		thetaMin:         pick(req.ThetaMin, cfg.ThetaMin()),
		thetaMax:         pick(req.ThetaMax, cfg.ThetaMax()),
		vMin:             pick(req.VMin, cfg.VMin()),
		vMax:             pick(req.VMax, cfg.VMax()),
		qMin:             req.QMin,
		qMax:             req.QMax,
		curtailmentLimit: req.CurtailmentLimit,
	}
}

// Model is the explicit aggregate of sets, parameters and decision variables
// of one mathematical program. It is built fresh for a single solve and
// discarded afterwards.
//
// Sign convention, fixed across the whole engine: net nodal power is
// P = load - generation (positive = consumption). In every nodal balance the
// net flow INTO node n equals P'[n] - P_plus[n] at parents, P'[n] + P_minus[n]
// at children and P'[n] elsewhere.
//
// Every node and edge variable is indexed by the 2x2 scenario vertex grid
// (VertP x VertV); the four instances are solved jointly to produce robust
// worst-case envelopes.
type Model struct {
	Formulation FlowFormulation
	Objective   ObjectiveKind

	// Graph is the operational subgraph the model is built over.
	Graph *network.Graph

	Nodes    []int
	Lines    []*network.Edge
	Parents  []int
	Children []int

	// P and Q are per-unit net nodal powers of the operational area.
	P map[int]float64
	Q map[int]float64

	// Info is the boundary information per child (DOE only).
	Info map[int]float64

	// VP holds the voltage magnitude of each voltage vertex.
	VP [2]float64

	params params

	Prog *program.Program
	Vars *Variables

	flowVertex                   [2]int
	nodePos, parentPos, childPos map[int]int
}

// Variables holds the column layout of the program: contiguous blocks per
// variable family, addressed through typed index methods. A block start of -1
// means the family does not exist under the chosen formulation/objective.
type Variables struct {
	nLines, nNodes, nParents, nChildren int

	// DC families
	f, i, theta, v int

	// AC families
	g, iSq, vSq, qPrime, qPlus, qMinus int

	// shared families
	pPrime, z, curt, pPlus int

	// DOE families
	pMinus, pCSet, aux, diffDSO int

	// scalar aggregates
	envelopeVolume, curtailmentBudget, envelopeCenterGap int
}

func newVariables(nLines, nNodes, nParents, nChildren int) *Variables {
	return &Variables{
		nLines: nLines, nNodes: nNodes, nParents: nParents, nChildren: nChildren,
		f: -1, i: -1, theta: -1, v: -1,
		g: -1, iSq: -1, vSq: -1, qPrime: -1, qPlus: -1, qMinus: -1,
		pPrime: -1, z: -1, curt: -1, pPlus: -1,
		pMinus: -1, pCSet: -1, aux: -1, diffDSO: -1,
		envelopeVolume: -1, curtailmentBudget: -1, envelopeCenterGap: -1,
	}
}

func idx4(base, pos, vp, vv int) int { return base + (pos*2+vp)*2 + vv }

// F returns the column of the active flow on line l at scenario (vp, vv).
func (vr *Variables) F(l, vp, vv int) int { return idx4(vr.f, l, vp, vv) }

// I returns the column of the line current (DC formulation).
func (vr *Variables) I(l, vp, vv int) int { return idx4(vr.i, l, vp, vv) }

// Theta returns the column of the voltage angle at node position n (DC).
func (vr *Variables) Theta(n, vp, vv int) int { return idx4(vr.theta, n, vp, vv) }

// V returns the column of the voltage magnitude at node position n (DC).
func (vr *Variables) V(n, vp, vv int) int { return idx4(vr.v, n, vp, vv) }

// G returns the column of the reactive flow on line l (AC).
func (vr *Variables) G(l, vp, vv int) int { return idx4(vr.g, l, vp, vv) }

// ISq returns the column of the squared current on line l (AC).
func (vr *Variables) ISq(l, vp, vv int) int { return idx4(vr.iSq, l, vp, vv) }

// VSq returns the column of the squared voltage at node position n (AC).
func (vr *Variables) VSq(n, vp, vv int) int { return idx4(vr.vSq, n, vp, vv) }

// PPrime returns the column of the net active power after optimization.
func (vr *Variables) PPrime(n, vp, vv int) int { return idx4(vr.pPrime, n, vp, vv) }

// QPrime returns the column of the net reactive power after optimization (AC).
func (vr *Variables) QPrime(n, vp, vv int) int { return idx4(vr.qPrime, n, vp, vv) }

// Z returns the column of the curtailment absolute-value auxiliary.
func (vr *Variables) Z(n, vp, vv int) int { return idx4(vr.z, n, vp, vv) }

// Curt returns the column of the curtailment at node position n.
func (vr *Variables) Curt(n, vp, vv int) int { return idx4(vr.curt, n, vp, vv) }

// PPlus returns the column of the active import at parent position p.
func (vr *Variables) PPlus(p, vp, vv int) int { return idx4(vr.pPlus, p, vp, vv) }

// QPlus returns the column of the reactive import at parent position p (AC).
func (vr *Variables) QPlus(p, vp, vv int) int { return idx4(vr.qPlus, p, vp, vv) }

// PMinus returns the column of the active export at child position c (DOE).
func (vr *Variables) PMinus(c, vp, vv int) int { return idx4(vr.pMinus, c, vp, vv) }

// QMinus returns the column of the reactive export at child position c (AC DOE).
func (vr *Variables) QMinus(c, vp, vv int) int { return idx4(vr.qMinus, c, vp, vv) }

// PCSet returns the column of the envelope corner vp for child position c.
// Corner 0 is the upper corner by convention.
func (vr *Variables) PCSet(c, vp int) int { return vr.pCSet + c*2 + vp }

// Aux returns the column of the per-child envelope width (DOE).
func (vr *Variables) Aux(c int) int { return vr.aux + c }

// DiffDSO returns the column of the per-child deviation from the boundary
// information estimate (DOE).
func (vr *Variables) DiffDSO(c int) int { return vr.diffDSO + c }

// EnvelopeVolume returns the column of the total envelope volume (DOE).
func (vr *Variables) EnvelopeVolume() int { return vr.envelopeVolume }

// CurtailmentBudget returns the column of the curtailment budget.
func (vr *Variables) CurtailmentBudget() int { return vr.curtailmentBudget }

// EnvelopeCenterGap returns the column of the summed deviation (DOE).
func (vr *Variables) EnvelopeCenterGap() int { return vr.envelopeCenterGap }

// NewModel declares sets, parameters and decision variables over the
// operational subgraph. Bound-only security constraints (thermal, angle,
// child voltage, boundary exchange, sign consistency of P') are applied here
// as column bounds; relational constraints are emitted by the builders.
func NewModel(sub *network.Graph, req *SolveRequest, cfg *Config, info map[int]float64) (*Model, error) {
	p := resolveParams(req, cfg)

	nodes := sub.SortedNodes()
	lines := sub.Edges()
	parents := append([]int(nil), req.ParentNodes...)
	children := append([]int(nil), req.ChildrenNodes...)
	sort.Ints(parents)
	sort.Ints(children)

	m := &Model{
		Formulation: req.Formulation,
		Objective:   req.Objective,
		Graph:       sub,
		Nodes:       nodes,
		Lines:       lines,
		Parents:     parents,
		Children:    children,
		P:           make(map[int]float64, len(nodes)),
		Q:           make(map[int]float64, len(nodes)),
		Info:        info,
		VP:          [2]float64{p.vMin, p.vMax},
		params:      p,
		flowVertex:  req.FlowVertex,
		Prog:        program.New(),
		nodePos:     make(map[int]int, len(nodes)),
		parentPos:   make(map[int]int, len(parents)),
		childPos:    make(map[int]int, len(children)),
	}
	for pos, id := range nodes {
		m.nodePos[id] = pos
		n, _ := sub.Node(id)
		m.P[id] = n.P
		m.Q[id] = n.Q
	}
	for pos, id := range parents {
		if _, ok := m.nodePos[id]; !ok {
			return nil, &ConfigurationError{Field: "parent_nodes", Message: fmt.Sprintf("node %d is not in the operational subgraph", id)}
		}
		m.parentPos[id] = pos
	}
	for pos, id := range children {
		if _, ok := m.nodePos[id]; !ok {
			return nil, &ConfigurationError{Field: "children_nodes", Message: fmt.Sprintf("node %d is not in the operational subgraph", id)}
		}
		m.childPos[id] = pos
	}

	// The subgraph is a per-solve copy, so tagging boundary roles on it does
	// not touch the shared graph.
	for id := range m.parentPos {
		if n, ok := sub.Node(id); ok {
			n.Role = network.RoleParent
		}
	}
	for id := range m.childPos {
		if n, ok := sub.Node(id); ok {
			n.Role = network.RoleChild
		}
	}

	m.buildColumns()
	return m, nil
}

func (m *Model) buildColumns() {
	prog := m.Prog
	vars := newVariables(len(m.Lines), len(m.Nodes), len(m.Parents), len(m.Children))
	p := m.params
	inf := program.Inf()

	addGrid4 := func(family string, count int, naming func(pos int) string, bounds func(pos int) (float64, float64)) int {
		if count == 0 {
			return -1
		}
		start := prog.NumVars()
		for pos := 0; pos < count; pos++ {
			lo, hi := bounds(pos)
			for vp := 0; vp < 2; vp++ {
				for vv := 0; vv < 2; vv++ {
					prog.AddColumn(fmt.Sprintf("%s%s(%d,%d)", family, naming(pos), vp, vv), lo, hi)
				}
			}
		}
		return start
	}
	lineName := func(l int) string { return fmt.Sprintf("[%d,%d]", m.Lines[l].U, m.Lines[l].V) }
	nodeName := func(n int) string { return fmt.Sprintf("[%d]", m.Nodes[n]) }
	parentName := func(pp int) string { return fmt.Sprintf("[%d]", m.Parents[pp]) }
	childName := func(c int) string { return fmt.Sprintf("[%d]", m.Children[c]) }
	free := func(int) (float64, float64) { return program.NegInf(), inf }

	vars.f = addGrid4("F", len(m.Lines), lineName, free)

	switch m.Formulation {
	case FlowDC:
		vars.i = addGrid4("I", len(m.Lines), lineName, func(l int) (float64, float64) {
			return m.Lines[l].IMinPU, m.Lines[l].IMaxPU
		})
		vars.theta = addGrid4("theta", len(m.Nodes), nodeName, func(int) (float64, float64) {
			return p.thetaMin, p.thetaMax
		})
		vars.v = addGrid4("V", len(m.Nodes), nodeName, func(n int) (float64, float64) {
			if _, isChild := m.childPos[m.Nodes[n]]; isChild {
				return m.voltageBand(m.Nodes[n])
			}
			return 0, inf
		})
	case FlowAC:
		vars.g = addGrid4("G", len(m.Lines), lineName, free)
		vars.iSq = addGrid4("Isq", len(m.Lines), lineName, func(l int) (float64, float64) {
			iMax := m.Lines[l].IMaxPU
			return 0, iMax * iMax
		})
		vars.vSq = addGrid4("Vsq", len(m.Nodes), nodeName, func(n int) (float64, float64) {
			lo, hi := m.voltageBand(m.Nodes[n])
			return lo * lo, hi * hi
		})
	}

	vars.pPrime = addGrid4("P'", len(m.Nodes), nodeName, func(n int) (float64, float64) {
		// Sign consistency: optimization can shrink a known net power
		// toward zero but never flip its sign.
		pn := m.P[m.Nodes[n]]
		switch {
		case pn > 0:
			return 0, pn
		case pn < 0:
			return pn, 0
		default:
			return program.NegInf(), inf
		}
	})
	vars.z = addGrid4("z", len(m.Nodes), nodeName, func(int) (float64, float64) { return 0, inf })
	vars.curt = addGrid4("curt", len(m.Nodes), nodeName, free)
	vars.pPlus = addGrid4("P+", len(m.Parents), parentName, func(int) (float64, float64) {
		return p.pMin, p.pMax
	})

	if m.Formulation == FlowAC {
		vars.qPrime = addGrid4("Q'", len(m.Nodes), nodeName, free)
		qLo, qHi := program.NegInf(), inf
		if p.qMin != nil {
			qLo = *p.qMin
		}
		if p.qMax != nil {
			qHi = *p.qMax
		}
		vars.qPlus = addGrid4("Q+", len(m.Parents), parentName, func(int) (float64, float64) {
			return qLo, qHi
		})
	}

	budgetCap := m.sumAbsP()
	if p.curtailmentLimit != nil {
		budgetCap = *p.curtailmentLimit
	}
	vars.curtailmentBudget = prog.AddColumn("curtailment_budget", 0, budgetCap)

	if m.Objective == ObjectiveDOE {
		vars.pMinus = addGrid4("P-", len(m.Children), childName, free)
		if m.Formulation == FlowAC {
			vars.qMinus = addGrid4("Q-", len(m.Children), childName, free)
		}
		vars.pCSet = prog.NumVars()
		for c := range m.Children {
			for vp := 0; vp < 2; vp++ {
				prog.AddColumn(fmt.Sprintf("P_C_set%s(%d)", childName(c), vp), program.NegInf(), inf)
			}
		}
		vars.aux = prog.NumVars()
		for c := range m.Children {
			prog.AddColumn("aux"+childName(c), program.NegInf(), inf)
		}
		vars.diffDSO = prog.NumVars()
		for c := range m.Children {
			prog.AddColumn("diff_dso"+childName(c), 0, inf)
		}
		vars.envelopeVolume = prog.AddColumn("envelope_volume", 0, inf)
		vars.envelopeCenterGap = prog.AddColumn("envelope_center_gap", 0, inf)
	}

	m.Vars = vars
}

// voltageBand returns the magnitude bounds for a node: per-node graph
// overrides win over the request/config band.
func (m *Model) voltageBand(id int) (float64, float64) {
	lo, hi := m.params.vMin, m.params.vMax
	if n, ok := m.Graph.Node(id); ok {
		if n.VMinPU != nil {
			lo = *n.VMinPU
		}
		if n.VMaxPU != nil {
			hi = *n.VMaxPU
		}
	}
	return lo, hi
}

func (m *Model) sumAbsP() float64 {
	total := 0.0
	for _, id := range m.Nodes {
		total += math.Abs(m.P[id])
	}
	return total
}

// lineLabel names an edge in errors and row names.
func lineLabel(e *network.Edge) string {
	return fmt.Sprintf("[%d,%d]", e.U, e.V)
}
