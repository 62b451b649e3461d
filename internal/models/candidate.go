// Package models defines the domain types shared across the collector
// pipeline: raw candidates, enriched candidates, persisted tools, digests,
// push subscriptions, and agent run records.
package models

// Source names for candidate provenance.
const (
	SourceProductHunt = "producthunt"
	SourceTAAFT       = "theresanaiforthat"
	SourceFuturepedia = "futurepedia"
	SourceRSS         = "rss"
	SourceManual      = "manual"
)

// Candidate is a not-yet-validated tool discovered from an external source.
// Candidates are ephemeral: they exist only for the duration of one collect
// run and are discarded after enrichment.
type Candidate struct {
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Description string         `json:"description,omitempty"`
	LogoURL     string         `json:"logo_url,omitempty"`
	Source      string         `json:"source"`
	SourceURL   string         `json:"source_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// EnrichedCandidate is a Candidate after classification: summary, category,
// tags, pricing, and score have been derived. Immutable once produced.
type EnrichedCandidate struct {
	Candidate

	Summary       string   `json:"summary"`
	CategorySlug  string   `json:"category_slug"`
	Tags          []string `json:"tags"`
	PricingType   string   `json:"pricing_type"`
	PricingDetail string   `json:"pricing_detail,omitempty"`
	Score         float64  `json:"score"`
}
