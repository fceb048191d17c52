package ports

import (
	"context"

	"twostep-routing-service/internal/solver"
)

// Port: a boundary for submitting route optimization requests to a
// solver backend.
type Solver interface {
	// Solve one optimization request and return the solution.
	OptimizeTours(ctx context.Context, req *solver.Request) (*solver.Response, error)
}
