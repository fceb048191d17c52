package services

import (
	"context"
	"fmt"

	"twostep-routing-service/internal/platform/obs"
	"twostep-routing-service/internal/ports"
	"twostep-routing-service/internal/solver"
)

// PlanResult carries the merged plan plus the intermediate artifacts of
// the run, for callers that persist or inspect them.
type PlanResult struct {
	Merged         *MergedPlan
	LocalRequest   *solver.Request
	LocalResponse  *solver.Response
	GlobalRequest  *solver.Request
	GlobalResponse *solver.Response
	Refined        bool
}

// RunPipeline executes the whole two-step flow against a solver backend:
// solve the local model, solve the global model built from it, refine
// consecutive same-parking visits when the global schedule allows it,
// and merge the final pair of solutions into one plan. When nothing is
// refinable the refinement solves are skipped entirely.
func RunPipeline(ctx context.Context, backend ports.Solver, planner *Planner) (result *PlanResult, err error) {
	defer obs.Time(ctx, "plan_two_step")(&err)

	localRequest, err := planner.MakeLocalRequest()
	if err != nil {
		return nil, err
	}
	localResponse, err := solvePhase(ctx, backend, "solve_local", localRequest)
	if err != nil {
		return nil, err
	}

	globalRequest, err := planner.MakeGlobalRequest(localResponse)
	if err != nil {
		return nil, err
	}
	globalResponse, err := solvePhase(ctx, backend, "solve_global", globalRequest)
	if err != nil {
		return nil, err
	}

	refined := false
	refinementRequest, _, err := planner.MakeLocalRefinementRequest(localResponse, globalResponse)
	if err != nil {
		return nil, err
	}
	if refinementRequest != nil {
		refinementResponse, err := solvePhase(ctx, backend, "solve_refinement", refinementRequest)
		if err != nil {
			return nil, err
		}

		integrated, err := planner.IntegrateLocalRefinement(
			localRequest, localResponse, globalResponse, refinementResponse,
		)
		if err != nil {
			return nil, err
		}
		localRequest = integrated.LocalRequest
		localResponse = integrated.LocalResponse
		globalRequest = integrated.GlobalRequest

		globalResponse, err = solvePhase(ctx, backend, "solve_global_integrated", globalRequest)
		if err != nil {
			return nil, err
		}
		refined = true
	}

	merged, err := planner.MergeLocalAndGlobal(localResponse, globalResponse)
	if err != nil {
		return nil, err
	}

	return &PlanResult{
		Merged:         merged,
		LocalRequest:   localRequest,
		LocalResponse:  localResponse,
		GlobalRequest:  globalRequest,
		GlobalResponse: globalResponse,
		Refined:        refined,
	}, nil
}

func solvePhase(
	ctx context.Context, backend ports.Solver, name string, req *solver.Request,
) (resp *solver.Response, err error) {
	defer obs.Time(ctx, name)(&err)

	resp, err = backend.OptimizeTours(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return resp, nil
}
