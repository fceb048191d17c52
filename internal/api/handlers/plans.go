package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"twostep-routing-service/internal/api/dto"
	"twostep-routing-service/internal/domain"
	"twostep-routing-service/internal/ports"
	"twostep-routing-service/internal/services"
)

type PlanHandler struct {
	Solver ports.Solver
	Repo   ports.PlanRepository
}

// Plan runs the whole two-step flow for one scenario and persists the
// outcome as a plan run.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.PlanRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	parkings := req.ServiceParkings()

	parkingFor, err := req.ServiceParkingFor()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	planner, err := services.NewPlanner(&req.Request, parkings, parkingFor, req.ServiceOptions())
	if err != nil {
		if errors.Is(err, services.ErrInvalidConfig) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("build planner failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	started := time.Now()
	result, err := services.RunPipeline(r.Context(), h.Solver, planner)
	elapsed := time.Since(started)

	run := &domain.PlanRun{
		ID:           uuid.NewString(),
		Label:        req.Request.Label,
		Status:       domain.PlanRunStatusCompleted,
		CreatedAt:    started.UTC(),
		DurationMS:   elapsed.Milliseconds(),
		NumShipments: len(req.Request.Model.Shipments),
		NumVehicles:  len(req.Request.Model.Vehicles),
		NumParkings:  len(parkings),
	}
	if payload, marshalErr := json.Marshal(&req); marshalErr == nil {
		run.Request = payload
	}

	if err != nil {
		run.Status = domain.PlanRunStatusFailed
		run.Result = json.RawMessage(`{}`)
		h.saveRun(r, run)

		log.Printf("plan pipeline failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	run.NumRoutes = len(result.Merged.Response.Routes)
	run.NumSkipped = len(result.Merged.Response.SkippedShipments)
	run.Refined = result.Refined

	res := dto.PlanResponse{
		RunID:    run.ID,
		Refined:  result.Refined,
		Request:  result.Merged.Request,
		Response: result.Merged.Response,
	}
	if payload, marshalErr := json.Marshal(&res); marshalErr == nil {
		run.Result = payload
	} else {
		run.Result = json.RawMessage(`{}`)
	}
	h.saveRun(r, run)

	writeJSON(w, r, http.StatusOK, res)
}

// Persisting a run never fails the request; the plan is already computed.
func (h *PlanHandler) saveRun(r *http.Request, run *domain.PlanRun) {
	if h.Repo == nil {
		return
	}
	if err := h.Repo.SavePlanRun(r.Context(), run); err != nil {
		log.Printf("save plan run %q failed: %v", run.ID, err)
	}
}
