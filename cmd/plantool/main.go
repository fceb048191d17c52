package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"twostep-routing-service/internal/adapters/solverhttp"
	"twostep-routing-service/internal/api/dto"
	"twostep-routing-service/internal/config"
	"twostep-routing-service/internal/services"
)

// plantool runs one planning scenario from a JSON file against a solver
// backend and prints the merged plan, for local experiments without the
// HTTP server.
func main() {
	scenarioPath := flag.String("scenario", "", "path to a scenario JSON file")
	outPath := flag.String("o", "", "write the merged plan here instead of stdout")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if *scenarioPath == "" {
		log.Fatal("-scenario is required")
	}

	solverURL := config.Get("SOLVER_URL", "")
	if solverURL == "" {
		log.Fatal("SOLVER_URL is required")
	}

	if err := run(*scenarioPath, *outPath, solverURL, *timeout); err != nil {
		log.Fatal(err)
	}
}

func run(scenarioPath, outPath, solverURL string, timeout time.Duration) error {
	raw, err := os.ReadFile(scenarioPath)
	if err != nil {
		return fmt.Errorf("read scenario %q: %w", scenarioPath, err)
	}

	var scenario dto.PlanRequest
	if err := json.Unmarshal(raw, &scenario); err != nil {
		return fmt.Errorf("parse scenario %q: %w", scenarioPath, err)
	}

	parkingFor, err := scenario.ServiceParkingFor()
	if err != nil {
		return fmt.Errorf("parse scenario %q: %w", scenarioPath, err)
	}

	planner, err := services.NewPlanner(
		&scenario.Request, scenario.ServiceParkings(), parkingFor, scenario.ServiceOptions(),
	)
	if err != nil {
		return err
	}

	backend, err := solverhttp.NewClient(solverURL, os.Getenv("SOLVER_API_KEY"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	result, err := services.RunPipeline(ctx, backend, planner)
	if err != nil {
		return err
	}
	log.Printf(
		"Plan complete routes=%d skipped=%d refined=%t dur=%dms",
		len(result.Merged.Response.Routes),
		len(result.Merged.Response.SkippedShipments),
		result.Refined,
		time.Since(started).Milliseconds(),
	)

	out := dto.PlanResponse{
		Refined:  result.Refined,
		Request:  result.Merged.Request,
		Response: result.Merged.Response,
	}
	payload, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode merged plan: %w", err)
	}
	payload = append(payload, '\n')

	if outPath == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return fmt.Errorf("write merged plan %q: %w", outPath, err)
	}
	return nil
}
