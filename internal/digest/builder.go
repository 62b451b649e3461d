// Package digest builds the daily rollup of newly published tools.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

// ToolStore is the slice of the tool repository the builder needs.
type ToolStore interface {
	ListPublishedSince(ctx context.Context, t time.Time) ([]models.Tool, error)
	SetFeatured(ctx context.Context, id uuid.UUID) error
}

// DigestStore persists the daily digest row.
type DigestStore interface {
	Upsert(ctx context.Context, d *models.Digest) error
}

// Builder assembles today's digest from the tools published since local
// midnight.
type Builder struct {
	tools   ToolStore
	digests DigestStore
	logger  logger.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// NewBuilder creates a digest Builder.
func NewBuilder(tools ToolStore, digests DigestStore, log logger.Logger) *Builder {
	return &Builder{
		tools:   tools,
		digests: digests,
		logger:  log,
		now:     time.Now,
	}
}

// Build creates or replaces today's digest. The highest-scoring tool of the
// day becomes the featured tool. A day with no new tools produces no digest
// and is not an error. Returns the digest, or nil when nothing was built.
func (b *Builder) Build(ctx context.Context) (*models.Digest, error) {
	now := b.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	tools, err := b.tools.ListPublishedSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("list today's tools: %w", err)
	}
	if len(tools) == 0 {
		b.logger.Info("No new tools today, skipping digest")
		return nil, nil
	}

	// ListPublishedSince orders by score descending, so the first entry is
	// the day's featured tool.
	featured := tools[0]
	if err := b.tools.SetFeatured(ctx, featured.ID); err != nil {
		return nil, fmt.Errorf("set featured tool: %w", err)
	}

	toolIDs := make([]string, len(tools))
	for i, tool := range tools {
		toolIDs[i] = tool.ID.String()
	}

	d := &models.Digest{
		DigestDate:     midnight,
		Title:          fmt.Sprintf("오늘의 AI 툴 %d선", len(tools)),
		Summary:        buildSummary(tools, featured),
		FeaturedToolID: featured.ID,
		ToolIDs:        toolIDs,
		ToolCount:      len(tools),
		IsPublished:    true,
	}

	if err := b.digests.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("upsert digest: %w", err)
	}

	b.logger.Info("Digest built",
		logger.String("date", midnight.Format("2006-01-02")),
		logger.Int("tools", len(tools)),
		logger.String("featured", featured.Name),
	)
	return d, nil
}

func buildSummary(tools []models.Tool, featured models.Tool) string {
	return fmt.Sprintf("새로운 AI 툴 %d개가 추가되었습니다. 오늘의 추천: %s",
		len(tools), featured.Name)
}
