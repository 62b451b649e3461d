package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aitoolsdaily/collector/internal/models"
)

// RunRepository provides database operations for agent run records.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record in the running state and returns its id.
func (r *RunRepository) Create(ctx context.Context, source string) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO agent_runs (id, source, status, tools_found, tools_saved, started_at)
		VALUES ($1, $2, $3, 0, 0, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, id, source, models.RunStatusRunning, time.Now()); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}

	return id, nil
}

// Finalize writes the run's single terminal transition: status, counters,
// details report, and completion time.
func (r *RunRepository) Finalize(
	ctx context.Context,
	id uuid.UUID,
	status string,
	toolsFound, toolsSaved int,
	details any,
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal run details: %w", err)
	}

	query := `
		UPDATE agent_runs
		SET status = $2, tools_found = $3, tools_saved = $4, details = $5, completed_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, toolsFound, toolsSaved, detailsJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Append inserts an already-terminal run record in one write. The push
// dispatcher uses this for its per-run summary counters.
func (r *RunRepository) Append(
	ctx context.Context,
	source, status string,
	toolsFound, toolsSaved int,
	details any,
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal run details: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO agent_runs (id, source, status, tools_found, tools_saved, details, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := r.db.ExecContext(ctx, query, uuid.New(), source, status,
		toolsFound, toolsSaved, detailsJSON, now, now); err != nil {
		return fmt.Errorf("failed to append run: %w", err)
	}

	return nil
}

// ListRecent returns the most recent runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]models.Run, error) {
	runs := []models.Run{}
	query := `
		SELECT id, source, status, tools_found, tools_saved, details, started_at, completed_at
		FROM agent_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}
