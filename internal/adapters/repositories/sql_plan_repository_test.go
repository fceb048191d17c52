package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"twostep-routing-service/internal/domain"
	"twostep-routing-service/internal/ports"
)

func newTestRepository(t *testing.T) *SQLPlanRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	return NewSQLPlanRepository(db, false)
}

func testRun(id string, createdAt time.Time) *domain.PlanRun {
	return &domain.PlanRun{
		ID:           id,
		Label:        "scenario",
		Status:       domain.PlanRunStatusCompleted,
		CreatedAt:    createdAt,
		DurationMS:   1200,
		NumShipments: 9,
		NumVehicles:  2,
		NumParkings:  1,
		NumRoutes:    2,
		NumSkipped:   0,
		Refined:      true,
		Request:      json.RawMessage(`{"label":"scenario"}`),
		Result:       json.RawMessage(`{"routes":[]}`),
	}
}

func TestSaveAndGetPlanRun(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := repo.SavePlanRun(ctx, testRun("run-1", created)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetPlanRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Label != "scenario" || got.Status != domain.PlanRunStatusCompleted {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, created)
	}
	if !got.Refined {
		t.Fatal("refined flag lost")
	}
	if string(got.Request) != `{"label":"scenario"}` {
		t.Fatalf("request payload = %s", got.Request)
	}
}

func TestGetPlanRunNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetPlanRun(context.Background(), "missing")
	if !errors.Is(err, ports.ErrPlanRunNotFound) {
		t.Fatalf("err = %v, want ErrPlanRunNotFound", err)
	}
}

func TestListPlanRunsNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := repo.SavePlanRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	runs, err := repo.ListPlanRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
}
