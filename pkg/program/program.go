// Package program holds the mathematical program assembled for a single
// solve: column costs and bounds, ranged rows over a sparse coefficient
// matrix, and optional per-row quadratic terms for the second-order-cone
// relaxation. A Program is built fresh for every solve and never mutated
// afterwards by the solver.
package program

import "math"

// Nonzero is a single (row, column, value) entry of the constraint matrix.
type Nonzero struct {
	Row int
	Col int
	Val float64
}

// QuadTerm is a quadratic entry x_I * x_J * Val attached to a row.
type QuadTerm struct {
	I, J int
	Val  float64
}

// Program represents one optimization problem of the form:
//
//	Minimize (or Maximize): ColCosts . x + Offset
//	Subject to:             RowLower <= A.x (+ quadratic terms) <= RowUpper
//	And:                    ColLower <= x <= ColUpper
//
// where A is given by ConstMatrix. Rows listed in Quad additionally carry
// quadratic terms and can only be handled by a conic-capable solver.
type Program struct {
	// Maximize indicates whether to maximize (true) or minimize (false).
	Maximize bool

	// Offset is a constant added to the objective function.
	Offset float64

	// ColCosts are the objective coefficients, one per column.
	ColCosts []float64

	// ColLower / ColUpper are per-column bounds. Use Inf()/NegInf() for
	// unbounded directions.
	ColLower []float64
	ColUpper []float64

	// RowLower / RowUpper are per-row bounds; a row with equal bounds is an
	// equality constraint.
	RowLower []float64
	RowUpper []float64

	// ConstMatrix lists the non-zero linear coefficients.
	ConstMatrix []Nonzero

	// Quad maps a row index to its quadratic terms.
	Quad map[int][]QuadTerm

	colNames []string
	rowNames []string
}

// New returns an empty program.
func New() *Program {
	return &Program{Quad: make(map[int][]QuadTerm)}
}

// Inf returns positive infinity, used for unbounded columns and rows.
func Inf() float64 { return math.Inf(1) }

// NegInf returns negative infinity.
func NegInf() float64 { return math.Inf(-1) }

// AddColumn appends a variable with the given bounds and zero cost, returning
// its column index. The name is kept for diagnostics only.
func (p *Program) AddColumn(name string, lower, upper float64) int {
	col := len(p.ColCosts)
	p.ColCosts = append(p.ColCosts, 0)
	p.ColLower = append(p.ColLower, lower)
	p.ColUpper = append(p.ColUpper, upper)
	p.colNames = append(p.colNames, name)
	return col
}

// SetCost sets the objective coefficient of a column.
func (p *Program) SetCost(col int, cost float64) {
	p.ColCosts[col] = cost
}

// SetBounds overrides the bounds of an existing column.
func (p *Program) SetBounds(col int, lower, upper float64) {
	p.ColLower[col] = lower
	p.ColUpper[col] = upper
}

// AddSparseRow adds a constraint lower <= sum(vals_i * x_cols_i) <= upper
// and returns the row index. Zero coefficients are filtered out.
func (p *Program) AddSparseRow(name string, lower float64, cols []int, vals []float64, upper float64) int {
	row := len(p.RowLower)
	p.RowLower = append(p.RowLower, lower)
	p.RowUpper = append(p.RowUpper, upper)
	p.rowNames = append(p.rowNames, name)
	for i, col := range cols {
		if vals[i] != 0 {
			p.ConstMatrix = append(p.ConstMatrix, Nonzero{Row: row, Col: col, Val: vals[i]})
		}
	}
	return row
}

// AddEqRow adds an equality constraint sum(vals * x) = rhs.
func (p *Program) AddEqRow(name string, cols []int, vals []float64, rhs float64) int {
	return p.AddSparseRow(name, rhs, cols, vals, rhs)
}

// AddLeRow adds sum(vals * x) <= rhs.
func (p *Program) AddLeRow(name string, cols []int, vals []float64, rhs float64) int {
	return p.AddSparseRow(name, NegInf(), cols, vals, rhs)
}

// AddGeRow adds sum(vals * x) >= rhs.
func (p *Program) AddGeRow(name string, cols []int, vals []float64, rhs float64) int {
	return p.AddSparseRow(name, rhs, cols, vals, Inf())
}

// AddQuadRow adds a row carrying both linear and quadratic terms. Only
// conic-capable solver backends accept programs with quadratic rows.
func (p *Program) AddQuadRow(name string, lower float64, cols []int, vals []float64, quad []QuadTerm, upper float64) int {
	row := p.AddSparseRow(name, lower, cols, vals, upper)
	if p.Quad == nil {
		p.Quad = make(map[int][]QuadTerm)
	}
	p.Quad[row] = append(p.Quad[row], quad...)
	return row
}

// NumVars returns the number of columns.
func (p *Program) NumVars() int { return len(p.ColCosts) }

// NumRows returns the number of rows.
func (p *Program) NumRows() int { return len(p.RowLower) }

// HasQuadRows reports whether any row carries quadratic terms.
func (p *Program) HasQuadRows() bool { return len(p.Quad) > 0 }

// ColName returns the diagnostic name of a column.
func (p *Program) ColName(col int) string {
	if col < 0 || col >= len(p.colNames) {
		return ""
	}
	return p.colNames[col]
}

// RowName returns the diagnostic name of a row.
func (p *Program) RowName(row int) string {
	if row < 0 || row >= len(p.rowNames) {
		return ""
	}
	return p.rowNames[row]
}

// RowNames returns all row names in order.
func (p *Program) RowNames() []string {
	out := make([]string, len(p.rowNames))
	copy(out, p.rowNames)
	return out
}

// RowEntries returns the non-zero linear entries of one row.
func (p *Program) RowEntries(row int) []Nonzero {
	var out []Nonzero
	for _, nz := range p.ConstMatrix {
		if nz.Row == row {
			out = append(out, nz)
		}
	}
	return out
}
