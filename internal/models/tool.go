package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Tool is a persisted row in the tools table: an enriched candidate plus the
// generated slug and publication state. After insert it is mutated only by
// the digest builder (is_featured) and admin actions.
type Tool struct {
	ID            uuid.UUID      `db:"id"             json:"id"`
	Name          string         `db:"name"           json:"name"`
	Slug          string         `db:"slug"           json:"slug"`
	Summary       string         `db:"summary"        json:"summary"`
	Description   string         `db:"description"    json:"description,omitempty"`
	URL           string         `db:"url"            json:"url"`
	LogoURL       string         `db:"logo_url"       json:"logo_url,omitempty"`
	CategorySlug  string         `db:"category_slug"  json:"category_slug"`
	Tags          pq.StringArray `db:"tags"           json:"tags"`
	PricingType   string         `db:"pricing_type"   json:"pricing_type"`
	PricingDetail string         `db:"pricing_detail" json:"pricing_detail,omitempty"`
	Score         float64        `db:"score"          json:"score"`
	Source        string         `db:"source"         json:"source"`
	SourceURL     string         `db:"source_url"     json:"source_url,omitempty"`
	IsPublished   bool           `db:"is_published"   json:"is_published"`
	IsFeatured    bool           `db:"is_featured"    json:"is_featured"`
	LaunchedAt    time.Time      `db:"launched_at"    json:"launched_at"`
	CreatedAt     time.Time      `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"     json:"updated_at"`
}
