package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aitoolsdaily/collector/internal/models"
)

const uniqueViolation = "23505"

const toolColumns = `id, name, slug, summary, description, url, logo_url,
		category_slug, tags, pricing_type, pricing_detail, score, source,
		source_url, is_published, is_featured, launched_at, created_at, updated_at`

// ToolRepository provides database operations for persisted tools. It is the
// pipeline's persistence gateway: slug generation happens here, schema
// management does not.
type ToolRepository struct {
	db *sqlx.DB
}

// NewToolRepository creates a new tool repository.
func NewToolRepository(db *sqlx.DB) *ToolRepository {
	return &ToolRepository{db: db}
}

// Insert persists one enriched candidate as a published tool and returns the
// new row id. The slug is derived from the name with a time-based uniqueness
// suffix, so no pre-check round trip is needed.
func (r *ToolRepository) Insert(ctx context.Context, ec *models.EnrichedCandidate) (uuid.UUID, error) {
	now := time.Now()
	tool := &models.Tool{
		ID:            uuid.New(),
		Name:          ec.Name,
		Slug:          UniqueSlug(ec.Name, now),
		Summary:       ec.Summary,
		Description:   ec.Description,
		URL:           ec.URL,
		LogoURL:       ec.LogoURL,
		CategorySlug:  ec.CategorySlug,
		Tags:          pq.StringArray(ec.Tags),
		PricingType:   ec.PricingType,
		PricingDetail: ec.PricingDetail,
		Score:         ec.Score,
		Source:        ec.Source,
		SourceURL:     ec.SourceURL,
		IsPublished:   true,
		LaunchedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO tools (id, name, slug, summary, description, url, logo_url,
			category_slug, tags, pricing_type, pricing_detail, score, source,
			source_url, is_published, is_featured, launched_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		tool.ID, tool.Name, tool.Slug, tool.Summary, tool.Description, tool.URL,
		tool.LogoURL, tool.CategorySlug, tool.Tags, tool.PricingType,
		tool.PricingDetail, tool.Score, tool.Source, tool.SourceURL,
		tool.IsPublished, tool.IsFeatured, tool.LaunchedAt, tool.CreatedAt,
		tool.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return uuid.Nil, models.ErrAlreadyExists
		}
		return uuid.Nil, fmt.Errorf("failed to insert tool: %w", err)
	}

	return tool.ID, nil
}

// ListRecent returns the most recent tools, newest first. The deduplicator
// compares incoming candidates against this bounded window.
func (r *ToolRepository) ListRecent(ctx context.Context, limit int) ([]models.Tool, error) {
	tools := []models.Tool{}
	query := `
		SELECT ` + toolColumns + `
		FROM tools
		ORDER BY created_at DESC
		LIMIT $1
	`

	if err := r.db.SelectContext(ctx, &tools, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent tools: %w", err)
	}

	return tools, nil
}

// ListPublishedSince returns published tools created at or after t, highest
// score first.
func (r *ToolRepository) ListPublishedSince(ctx context.Context, t time.Time) ([]models.Tool, error) {
	tools := []models.Tool{}
	query := `
		SELECT ` + toolColumns + `
		FROM tools
		WHERE created_at >= $1 AND is_published = true
		ORDER BY score DESC
	`

	if err := r.db.SelectContext(ctx, &tools, query, t); err != nil {
		return nil, fmt.Errorf("failed to list published tools: %w", err)
	}

	return tools, nil
}

// SetFeatured marks one tool as featured.
func (r *ToolRepository) SetFeatured(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tools SET is_featured = true, updated_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set featured tool: %w", err)
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

// CountCreatedSince counts tools created at or after t. The push dispatcher
// uses this for the default notification body and its skip rule.
func (r *ToolRepository) CountCreatedSince(ctx context.Context, t time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tools WHERE created_at >= $1`

	if err := r.db.GetContext(ctx, &count, query, t); err != nil {
		return 0, fmt.Errorf("failed to count tools: %w", err)
	}

	return count, nil
}

// Ping verifies database connectivity for health checks.
func (r *ToolRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
