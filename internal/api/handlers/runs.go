package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"twostep-routing-service/internal/api/dto"
	"twostep-routing-service/internal/domain"
	"twostep-routing-service/internal/ports"
)

type RunsHandler struct {
	Repo ports.PlanRepository
}

// List returns the most recent plan runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	runs, err := h.Repo.ListPlanRuns(r.Context(), limit)
	if err != nil {
		log.Printf("list plan runs failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListPlanRunsResponse{Runs: make([]dto.PlanRunSummary, 0, len(runs))}
	for _, run := range runs {
		res.Runs = append(res.Runs, summaryFromDomain(run))
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Get returns one plan run by id, including the stored scenario and
// merged plan.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "run not found")
		return
	}

	run, err := h.Repo.GetPlanRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrPlanRunNotFound) {
			writeError(w, r, http.StatusNotFound, "run not found")
			return
		}
		log.Printf("get plan run %q failed: %v", id, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.PlanRunDetail{
		PlanRunSummary: summaryFromDomain(run),
		Request:        run.Request,
		Result:         run.Result,
	}

	writeJSON(w, r, http.StatusOK, res)
}

func summaryFromDomain(run *domain.PlanRun) dto.PlanRunSummary {
	return dto.PlanRunSummary{
		ID:           run.ID,
		Label:        run.Label,
		Status:       run.Status,
		CreatedAt:    run.CreatedAt,
		DurationMS:   run.DurationMS,
		NumShipments: run.NumShipments,
		NumVehicles:  run.NumVehicles,
		NumParkings:  run.NumParkings,
		NumRoutes:    run.NumRoutes,
		NumSkipped:   run.NumSkipped,
		Refined:      run.Refined,
	}
}
