package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"twostep-routing-service/internal/adapters/cache"
	"twostep-routing-service/internal/adapters/repositories"
	"twostep-routing-service/internal/adapters/solverhttp"
	"twostep-routing-service/internal/api"
	"twostep-routing-service/internal/config"
	"twostep-routing-service/internal/platform/db"
	"twostep-routing-service/internal/ports"
)

// main is the application composition root.
// It wires concrete adapters (solver client, redis cache, SQL storage)
// behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := config.Get("PORT", "8080")

	solverURL := os.Getenv("SOLVER_URL")
	if strings.TrimSpace(solverURL) == "" {
		log.Fatal("SOLVER_URL is required")
	}

	client, err := solverhttp.NewClient(solverURL, os.Getenv("SOLVER_API_KEY"))
	if err != nil {
		log.Fatal(err)
	}

	// Identical sub-requests short-circuit through redis when configured.
	var backend ports.Solver = client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		ttl, err := time.ParseDuration(config.Get("SOLUTION_CACHE_TTL", "24h"))
		if err != nil {
			log.Fatalf("invalid SOLUTION_CACHE_TTL: %v", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		backend = cache.NewRedisSolutionCache(client, rdb, ttl)
		log.Printf("Solution cache enabled addr=%s ttl=%s", addr, ttl)
	}

	sqlDB, usePostgres, err := openStorage()
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	if err := repositories.InitSchema(sqlDB); err != nil {
		log.Fatal(err)
	}

	repo := repositories.NewSQLPlanRepository(sqlDB, usePostgres)
	router := api.NewRouter(backend, repo)

	// Write timeout leaves room for long solver calls on large scenarios.
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// openStorage prefers PostgreSQL when DATABASE_URL is set and falls back
// to a local SQLite file otherwise.
func openStorage() (*sql.DB, bool, error) {
	if databaseURL := os.Getenv("DATABASE_URL"); strings.TrimSpace(databaseURL) != "" {
		pg, err := db.Open(databaseURL)
		if err != nil {
			return nil, false, err
		}
		return pg, true, nil
	}

	dbPath := config.Get("DB_PATH", "data/app.db")
	lite, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, false, fmt.Errorf("openStorage: open sqlite database %q: %w", dbPath, err)
	}
	if err := lite.Ping(); err != nil {
		return nil, false, fmt.Errorf("openStorage: verify sqlite connection to %q: %w", dbPath, err)
	}

	return lite, false, nil
}
