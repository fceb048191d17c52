package api

import (
	"net/http"

	"twostep-routing-service/internal/api/handlers"
	"twostep-routing-service/internal/ports"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(backend ports.Solver, repo ports.PlanRepository) http.Handler {
	mux := http.NewServeMux()

	planHandler := &handlers.PlanHandler{
		Solver: backend,
		Repo:   repo,
	}
	runsHandler := &handlers.RunsHandler{Repo: repo}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/plans", planHandler.Plan)
	mux.HandleFunc("/runs", runsHandler.List)
	mux.HandleFunc("/runs/", runsHandler.Get)

	return loggingMiddleware(mux)
}
