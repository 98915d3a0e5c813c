package program

// Status describes the outcome of a solve.
type Status int

const (
	StatusUnknown        Status = iota
	StatusOptimal               // an optimal solution was found
	StatusInfeasible            // no feasible point exists
	StatusUnbounded             // the objective is unbounded
	StatusIterationLimit        // the solver hit its iteration budget
	StatusUnsupported           // the backend cannot handle this program class
	StatusError                 // the backend failed numerically
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusIterationLimit:
		return "iteration_limit"
	case StatusUnsupported:
		return "unsupported"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Solution contains the results from solving a Program.
type Solution struct {
	// Status indicates the outcome of the solve.
	Status Status

	// ColValues contains the primal values per column. Empty unless the
	// status carries a solution; failed solves never fabricate numbers.
	ColValues []float64

	// Objective is the objective value at the solution.
	Objective float64

	// Message carries backend diagnostics for non-optimal outcomes.
	Message string
}

// IsOptimal reports whether an optimal solution was found.
func (s *Solution) IsOptimal() bool { return s.Status == StatusOptimal }

// IsInfeasible reports whether the program was proven infeasible.
func (s *Solution) IsInfeasible() bool { return s.Status == StatusInfeasible }

// IsUnbounded reports whether the objective was proven unbounded.
func (s *Solution) IsUnbounded() bool { return s.Status == StatusUnbounded }

// HasSolution reports whether ColValues holds valid primal values.
func (s *Solution) HasSolution() bool {
	return s.Status == StatusOptimal && len(s.ColValues) > 0
}

// Value returns the solution value for a column, or 0 if out of range.
func (s *Solution) Value(col int) float64 {
	if col < 0 || col >= len(s.ColValues) {
		return 0
	}
	return s.ColValues[col]
}
