package sources

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

// htmlStrategy is one way of extracting candidates from a fetched page.
// Scraped sources change layout without notice, so each adapter keeps an
// ordered strategy list and uses the first one that yields results; an
// exhausted list means zero candidates, not an error.
type htmlStrategy struct {
	name    string
	extract func(doc *goquery.Document) []models.Candidate
}

// runStrategies tries strategies in order and returns the first non-empty
// result.
func runStrategies(strategies []htmlStrategy, doc *goquery.Document, log logger.Logger) []models.Candidate {
	for _, strategy := range strategies {
		candidates := strategy.extract(doc)
		if len(candidates) > 0 {
			log.Debug("Extraction strategy matched",
				logger.String("strategy", strategy.name),
				logger.Int("count", len(candidates)),
			)
			return candidates
		}
		log.Debug("Extraction strategy empty", logger.String("strategy", strategy.name))
	}
	return []models.Candidate{}
}
