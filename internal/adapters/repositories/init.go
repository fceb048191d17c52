package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the plan run schema. The DDL is restricted to the dialect
// both SQLite and PostgreSQL accept.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createPlanRunsQuery := `
	CREATE TABLE IF NOT EXISTS plan_runs (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		num_shipments INTEGER NOT NULL,
		num_vehicles INTEGER NOT NULL,
		num_parkings INTEGER NOT NULL,
		num_routes INTEGER NOT NULL,
		num_skipped INTEGER NOT NULL,
		refined INTEGER NOT NULL,
		request TEXT NOT NULL,
		result TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_plan_runs_created_at
	ON plan_runs(created_at);
	`

	statements := []string{
		createPlanRunsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
