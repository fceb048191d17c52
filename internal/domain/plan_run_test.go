package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPlanRunValidate(t *testing.T) {
	valid := PlanRun{
		ID:        "run-1",
		Label:     "scenario",
		Status:    PlanRunStatusCompleted,
		CreatedAt: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		Request:   json.RawMessage(`{}`),
		Result:    json.RawMessage(`{}`),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*PlanRun)
	}{
		{"missing id", func(r *PlanRun) { r.ID = "" }},
		{"unknown status", func(r *PlanRun) { r.Status = "running" }},
		{"missing created_at", func(r *PlanRun) { r.CreatedAt = time.Time{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run := valid
			tc.mutate(&run)
			if err := run.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPlanRunValidateFailedStatus(t *testing.T) {
	run := PlanRun{
		ID:        "run-2",
		Status:    PlanRunStatusFailed,
		CreatedAt: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	if err := run.Validate(); err != nil {
		t.Fatalf("failed runs are still valid records: %v", err)
	}
}
