package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	PlanRunStatusCompleted = "completed"
	PlanRunStatusFailed    = "failed"
)

// Record of one planning run: the submitted scenario, the merged plan it
// produced and a few headline numbers for listings. Request and Result
// are stored as raw JSON so the record round-trips through any backend
// without re-marshalling.
type PlanRun struct {
	ID           string
	Label        string
	Status       string
	CreatedAt    time.Time
	DurationMS   int64
	NumShipments int
	NumVehicles  int
	NumParkings  int
	NumRoutes    int
	NumSkipped   int
	Refined      bool
	Request      json.RawMessage
	Result       json.RawMessage
}

func (r *PlanRun) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("validate plan run: missing id")
	}
	if r.Status != PlanRunStatusCompleted && r.Status != PlanRunStatusFailed {
		return fmt.Errorf("validate plan run: unknown status %q", r.Status)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("validate plan run: missing created_at")
	}
	return nil
}
