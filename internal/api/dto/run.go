package dto

import (
	"encoding/json"
	"time"
)

type PlanRunSummary struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	DurationMS   int64     `json:"duration_ms"`
	NumShipments int       `json:"num_shipments"`
	NumVehicles  int       `json:"num_vehicles"`
	NumParkings  int       `json:"num_parkings"`
	NumRoutes    int       `json:"num_routes"`
	NumSkipped   int       `json:"num_skipped"`
	Refined      bool      `json:"refined"`
}

type PlanRunDetail struct {
	PlanRunSummary
	Request json.RawMessage `json:"request"`
	Result  json.RawMessage `json:"result"`
}

type ListPlanRunsResponse struct {
	Runs []PlanRunSummary `json:"runs"`
}
