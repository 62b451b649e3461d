package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aitoolsdaily/collector/internal/models"
)

// DigestRepository provides database operations for daily digests.
type DigestRepository struct {
	db *sqlx.DB
}

// NewDigestRepository creates a new digest repository.
func NewDigestRepository(db *sqlx.DB) *DigestRepository {
	return &DigestRepository{db: db}
}

// Upsert inserts or replaces the digest row for its date. digest_date is
// unique, so a rerun within the same day overwrites instead of appending.
func (r *DigestRepository) Upsert(ctx context.Context, d *models.Digest) error {
	now := time.Now()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	query := `
		INSERT INTO daily_digests (id, digest_date, title, summary,
			featured_tool_id, tool_ids, tool_count, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (digest_date) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			featured_tool_id = EXCLUDED.featured_tool_id,
			tool_ids = EXCLUDED.tool_ids,
			tool_count = EXCLUDED.tool_count,
			is_published = EXCLUDED.is_published,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(
		ctx, query,
		d.ID, d.DigestDate, d.Title, d.Summary, d.FeaturedToolID,
		pq.StringArray(d.ToolIDs), d.ToolCount, d.IsPublished, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert digest: %w", err)
	}

	return nil
}

// GetByDate retrieves the digest for a calendar date.
func (r *DigestRepository) GetByDate(ctx context.Context, date time.Time) (*models.Digest, error) {
	digest := &models.Digest{}
	query := `
		SELECT id, digest_date, title, summary, featured_tool_id, tool_ids,
			tool_count, is_published, created_at, updated_at
		FROM daily_digests
		WHERE digest_date = $1
	`

	err := r.db.GetContext(ctx, digest, query, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get digest: %w", err)
	}

	return digest, nil
}
