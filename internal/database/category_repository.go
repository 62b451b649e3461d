package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aitoolsdaily/collector/internal/models"
)

// CategoryRepository provides read access to the categories lookup table.
// The table itself is owned by the serving site; the pipeline only resolves
// slugs.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetBySlug retrieves one category by slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, slug, name, created_at
		FROM categories
		WHERE slug = $1
	`

	err := r.db.GetContext(ctx, category, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// List retrieves all categories ordered by slug.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	query := `
		SELECT id, slug, name, created_at
		FROM categories
		ORDER BY slug ASC
	`

	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	return categories, nil
}
