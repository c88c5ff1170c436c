package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/freeeve/gridpursuit/internal/train"
)

// Connect opens a connection pool to the PostgreSQL database.
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS training_runs (
	id          BIGSERIAL PRIMARY KEY,
	label       TEXT NOT NULL,
	grid_width  INT NOT NULL,
	grid_height INT NOT NULL,
	states      BIGINT NOT NULL,
	discount    DOUBLE PRECISION NOT NULL,
	workers     INT NOT NULL,
	outcome     TEXT,
	iterations  INT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_iterations (
	run_id          BIGINT NOT NULL REFERENCES training_runs(id) ON DELETE CASCADE,
	iteration       INT NOT NULL,
	mean_value      DOUBLE PRECISION NOT NULL,
	max_value_delta DOUBLE PRECISION NOT NULL,
	changed_actions INT NOT NULL,
	changed_pct     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, iteration)
);
`

// RunRepo records training runs and their per-iteration statistics.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// EnsureSchema creates the run tables when missing.
func (r *RunRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure run schema: %w", err)
	}
	return nil
}

// RunInfo describes a run being created.
type RunInfo struct {
	Label      string
	GridWidth  int
	GridHeight int
	States     int
	Discount   float64
	Workers    int
}

// CreateRun inserts a run row and returns its id.
func (r *RunRepo) CreateRun(ctx context.Context, info RunInfo) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO training_runs (label, grid_width, grid_height, states, discount, workers)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		info.Label, info.GridWidth, info.GridHeight, info.States, info.Discount, info.Workers,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// RecordIteration stores one round's statistics.
func (r *RunRepo) RecordIteration(ctx context.Context, runID int64, stats train.IterationStats) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO run_iterations (run_id, iteration, mean_value, max_value_delta, changed_actions, changed_pct)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, stats.Iteration, stats.MeanValue, stats.MaxValueDelta, stats.ChangedActions, stats.ChangedActionsPct)
	if err != nil {
		return fmt.Errorf("record iteration %d: %w", stats.Iteration, err)
	}
	return nil
}

// FinishRun marks a run completed with its outcome.
func (r *RunRepo) FinishRun(ctx context.Context, runID int64, outcome string, iterations int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE training_runs SET outcome = $2, iterations = $3, finished_at = now() WHERE id = $1`,
		runID, outcome, iterations)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// ListIterations returns a run's statistics in iteration order.
func (r *RunRepo) ListIterations(ctx context.Context, runID int64) ([]train.IterationStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT iteration, mean_value, max_value_delta, changed_actions, changed_pct
		 FROM run_iterations WHERE run_id = $1 ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	var out []train.IterationStats
	for rows.Next() {
		var s train.IterationStats
		if err := rows.Scan(&s.Iteration, &s.MeanValue, &s.MaxValueDelta, &s.ChangedActions, &s.ChangedActionsPct); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
