// Package solver adapts assembled programs to external numerical solvers
// through a uniform "build program, solve, read variable values" contract.
// Solver configuration is passed explicitly at construction; nothing is read
// from ambient global state.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/gridopt/envelope-service/pkg/program"
)

// ErrUnsupportedProgram is returned when a backend is asked to solve a
// program class it cannot handle, e.g. quadratic cone rows on an LP backend.
var ErrUnsupportedProgram = errors.New("solver: program class not supported by this backend")

// Solver is the uniform solve interface. Implementations must not mutate the
// program and must not fabricate primal values on failure.
type Solver interface {
	// Name identifies the backend in diagnostics.
	Name() string

	// Solve runs the backend on the program. Structured outcomes such as
	// infeasibility are reported through the Solution status; an error is
	// returned only when no solve was attempted at all.
	Solve(ctx context.Context, p *program.Program) (*program.Solution, error)
}

// SolverError wraps a backend failure with context.
type SolverError struct {
	Backend string
	Message string
	Err     error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver %s: %s: %v", e.Backend, e.Message, e.Err)
	}
	return fmt.Sprintf("solver %s: %s", e.Backend, e.Message)
}

func (e *SolverError) Unwrap() error { return e.Err }
