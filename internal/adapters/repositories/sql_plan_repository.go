package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"twostep-routing-service/internal/domain"
	"twostep-routing-service/internal/ports"
)

// SQL-backed implementation of the PlanRepository port, shared between
// the SQLite and PostgreSQL drivers. Queries are written with "?"
// placeholders and rebound for drivers that want "$N".
type SQLPlanRepository struct {
	DB *sql.DB
	// Dollar placeholders for pgx, question marks otherwise.
	DollarPlaceholders bool
}

func NewSQLPlanRepository(db *sql.DB, dollarPlaceholders bool) *SQLPlanRepository {
	return &SQLPlanRepository{DB: db, DollarPlaceholders: dollarPlaceholders}
}

func (s *SQLPlanRepository) rebind(query string) string {
	if !s.DollarPlaceholders {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store one finished plan run.
func (s *SQLPlanRepository) SavePlanRun(ctx context.Context, run *domain.PlanRun) error {
	if s.DB == nil {
		return errors.New("sql plan repository: DB is nil")
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("save plan run: %w", err)
	}

	query := `
	INSERT INTO plan_runs (
		id,
		label,
		status,
		created_at,
		duration_ms,
		num_shipments,
		num_vehicles,
		num_parkings,
		num_routes,
		num_skipped,
		refined,
		request,
		result
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`

	refined := 0
	if run.Refined {
		refined = 1
	}

	_, err := s.DB.ExecContext(ctx, s.rebind(query),
		run.ID,
		run.Label,
		run.Status,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.DurationMS,
		run.NumShipments,
		run.NumVehicles,
		run.NumParkings,
		run.NumRoutes,
		run.NumSkipped,
		refined,
		string(run.Request),
		string(run.Result),
	)
	if err != nil {
		return fmt.Errorf("save plan run %q: %w", run.ID, err)
	}

	return nil
}

const planRunColumns = `
	id,
	label,
	status,
	created_at,
	duration_ms,
	num_shipments,
	num_vehicles,
	num_parkings,
	num_routes,
	num_skipped,
	refined,
	request,
	result
`

// Retrieve a plan run by id.
func (s *SQLPlanRepository) GetPlanRun(ctx context.Context, id string) (*domain.PlanRun, error) {
	if s.DB == nil {
		return nil, errors.New("sql plan repository: DB is nil")
	}

	query := `
	SELECT ` + planRunColumns + `
	FROM plan_runs
	WHERE id = ?;
	`

	row := s.DB.QueryRowContext(ctx, s.rebind(query), id)
	run, err := scanPlanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan run %q: %w", id, ports.ErrPlanRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan run %q: %w", id, err)
	}

	return run, nil
}

// Retrieve the most recent plan runs, newest first.
func (s *SQLPlanRepository) ListPlanRuns(ctx context.Context, limit int) ([]*domain.PlanRun, error) {
	if s.DB == nil {
		return nil, errors.New("sql plan repository: DB is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT ` + planRunColumns + `
	FROM plan_runs
	ORDER BY created_at DESC
	LIMIT ?;
	`

	rows, err := s.DB.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("list plan runs: query plan_runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.PlanRun, 0, limit)
	for rows.Next() {
		run, err := scanPlanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list plan runs: scan row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plan runs: row iteration: %w", err)
	}

	return runs, nil
}

func scanPlanRun(scan func(dest ...any) error) (*domain.PlanRun, error) {
	var run domain.PlanRun
	var createdAt, request, result string
	var refined int

	err := scan(
		&run.ID,
		&run.Label,
		&run.Status,
		&createdAt,
		&run.DurationMS,
		&run.NumShipments,
		&run.NumVehicles,
		&run.NumParkings,
		&run.NumRoutes,
		&run.NumSkipped,
		&refined,
		&request,
		&result,
	)
	if err != nil {
		return nil, err
	}

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	run.Refined = refined != 0
	run.Request = json.RawMessage(request)
	run.Result = json.RawMessage(result)

	return &run, nil
}
