package solver

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/gridopt/envelope-service/pkg/program"
)

const defaultTolerance = 1e-10

// Simplex solves linear programs with gonum's dense simplex method. It
// converts the general-form program (free variables, column bounds, ranged
// rows) to the standard form min c'x, Ax = b, x >= 0 expected by lp.Simplex:
// every column is split into a positive and a negative part, and every
// inequality (including finite column bounds) becomes a slacked row. Keeping
// the conversion here makes the mapping from solver columns back to model
// columns explicit.
//
// Programs with quadratic rows are refused with ErrUnsupportedProgram; the
// second-order-cone relaxation needs a conic-capable backend behind the same
// interface.
type Simplex struct {
	// Tol is the optimality tolerance handed to lp.Simplex. Zero or
	// negative selects the default.
	Tol float64
}

// NewSimplex returns a simplex backend with the given tolerance.
func NewSimplex(tol float64) *Simplex {
	return &Simplex{Tol: tol}
}

// Name identifies the backend in diagnostics.
func (s *Simplex) Name() string { return "gonum-simplex" }

// inequality is one a'x <= rhs row of the intermediate form.
type inequality struct {
	cols []int
	vals []float64
	rhs  float64
}

// equality is one a'x = rhs row of the intermediate form.
type equality struct {
	cols []int
	vals []float64
	rhs  float64
}

// Solve converts and runs the program. Infeasible and unbounded outcomes are
// reported through the Solution status, not as errors.
func (s *Simplex) Solve(ctx context.Context, p *program.Program) (*program.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SolverError{Backend: s.Name(), Message: "cancelled before solve", Err: err}
	}
	if p.HasQuadRows() {
		sol := &program.Solution{Status: program.StatusUnsupported, Message: "program has quadratic rows"}
		return sol, &SolverError{Backend: s.Name(), Message: "program has quadratic rows", Err: ErrUnsupportedProgram}
	}

	n := p.NumVars()
	for i := 0; i < n; i++ {
		if p.ColLower[i] > p.ColUpper[i] {
			return &program.Solution{
				Status:  program.StatusInfeasible,
				Message: "column " + p.ColName(i) + " has crossing bounds",
			}, nil
		}
	}

	eqs, ineqs, infeasibleRow := gatherRows(p)
	if infeasibleRow != "" {
		return &program.Solution{
			Status:  program.StatusInfeasible,
			Message: "empty row " + infeasibleRow + " excludes zero",
		}, nil
	}

	// Finite column bounds become inequality rows so that the split
	// representation below stays uniform.
	for i := 0; i < n; i++ {
		if u := p.ColUpper[i]; !isInf(u) {
			ineqs = append(ineqs, inequality{cols: []int{i}, vals: []float64{1}, rhs: u})
		}
		if l := p.ColLower[i]; !isInf(l) {
			ineqs = append(ineqs, inequality{cols: []int{i}, vals: []float64{-1}, rhs: -l})
		}
	}

	// Standard-form layout: [x+ (n) | x- (n) | slacks (k)], x_i = z_i - z_{n+i}.
	k := len(ineqs)
	m := len(eqs) + k
	cols := 2*n + k

	a := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	c := make([]float64, cols)

	sign := 1.0
	if p.Maximize {
		sign = -1.0
	}
	for i := 0; i < n; i++ {
		c[i] = sign * p.ColCosts[i]
		c[n+i] = -sign * p.ColCosts[i]
	}

	for r, eq := range eqs {
		for i, col := range eq.cols {
			a.Set(r, col, eq.vals[i])
			a.Set(r, n+col, -eq.vals[i])
		}
		b[r] = eq.rhs
	}
	for j, iq := range ineqs {
		r := len(eqs) + j
		for i, col := range iq.cols {
			a.Set(r, col, iq.vals[i])
			a.Set(r, n+col, -iq.vals[i])
		}
		a.Set(r, 2*n+j, 1)
		b[r] = iq.rhs
	}

	tol := s.Tol
	if tol <= 0 {
		tol = defaultTolerance
	}

	_, z, err := lp.Simplex(c, a, b, tol, nil)
	switch {
	case err == nil:
		// fall through to extraction
	case errors.Is(err, lp.ErrInfeasible):
		return &program.Solution{Status: program.StatusInfeasible, Message: err.Error()}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return &program.Solution{Status: program.StatusUnbounded, Message: err.Error()}, nil
	default:
		return &program.Solution{Status: program.StatusError, Message: err.Error()}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, &SolverError{Backend: s.Name(), Message: "cancelled during solve", Err: err}
	}

	x := make([]float64, n)
	obj := p.Offset
	for i := 0; i < n; i++ {
		x[i] = z[i] - z[n+i]
		obj += p.ColCosts[i] * x[i]
	}
	return &program.Solution{
		Status:    program.StatusOptimal,
		ColValues: x,
		Objective: obj,
	}, nil
}

// gatherRows splits program rows into equalities and <= inequalities. A row
// without entries whose bounds exclude zero makes the program trivially
// infeasible; its name is returned.
func gatherRows(p *program.Program) ([]equality, []inequality, string) {
	type rowBuf struct {
		cols []int
		vals []float64
	}
	rows := make([]rowBuf, p.NumRows())
	for _, nz := range p.ConstMatrix {
		rows[nz.Row].cols = append(rows[nz.Row].cols, nz.Col)
		rows[nz.Row].vals = append(rows[nz.Row].vals, nz.Val)
	}

	var eqs []equality
	var ineqs []inequality
	for r := 0; r < p.NumRows(); r++ {
		lo, hi := p.RowLower[r], p.RowUpper[r]
		if len(rows[r].cols) == 0 {
			if lo > 0 || hi < 0 {
				return nil, nil, p.RowName(r)
			}
			continue
		}
		if lo == hi {
			eqs = append(eqs, equality{cols: rows[r].cols, vals: rows[r].vals, rhs: lo})
			continue
		}
		if !isInf(hi) {
			ineqs = append(ineqs, inequality{cols: rows[r].cols, vals: rows[r].vals, rhs: hi})
		}
		if !isInf(lo) {
			neg := make([]float64, len(rows[r].vals))
			for i, v := range rows[r].vals {
				neg[i] = -v
			}
			ineqs = append(ineqs, inequality{cols: rows[r].cols, vals: neg, rhs: -lo})
		}
	}
	return eqs, ineqs, ""
}

func isInf(v float64) bool {
	return v == program.Inf() || v == program.NegInf()
}
