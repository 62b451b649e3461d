package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Digest is the daily rollup row. digest_date is unique, so re-running the
// pipeline within one day overwrites instead of appending.
type Digest struct {
	ID             uuid.UUID      `db:"id"               json:"id"`
	DigestDate     time.Time      `db:"digest_date"      json:"digest_date"`
	Title          string         `db:"title"            json:"title"`
	Summary        string         `db:"summary"          json:"summary"`
	FeaturedToolID uuid.UUID      `db:"featured_tool_id" json:"featured_tool_id"`
	ToolIDs        pq.StringArray `db:"tool_ids"         json:"tool_ids"`
	ToolCount      int            `db:"tool_count"       json:"tool_count"`
	IsPublished    bool           `db:"is_published"     json:"is_published"`
	CreatedAt      time.Time      `db:"created_at"       json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"       json:"updated_at"`
}
