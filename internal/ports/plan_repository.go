package ports

import (
	"context"
	"errors"

	"twostep-routing-service/internal/domain"
)

var ErrPlanRunNotFound = errors.New("plan run not found")

// Port: a boundary for persisting and retrieving plan runs.
type PlanRepository interface {
	// Store one finished plan run.
	SavePlanRun(ctx context.Context, run *domain.PlanRun) error
	// Retrieve a plan run by id.
	GetPlanRun(ctx context.Context, id string) (*domain.PlanRun, error)
	// Retrieve the most recent plan runs, newest first.
	ListPlanRuns(ctx context.Context, limit int) ([]*domain.PlanRun, error)
}
