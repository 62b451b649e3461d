package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

// Enricher classifies candidates in small parallel batches with a cooldown
// between batches so the upstream rate limit is never the common case.
type Enricher struct {
	classifier *Classifier
	batchSize  int
	cooldown   time.Duration
	maxRetries int
	logger     logger.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEnricher creates an Enricher from the collect config.
func NewEnricher(classifier *Classifier, cfg config.CollectConfig, log logger.Logger) *Enricher {
	return &Enricher{
		classifier: classifier,
		batchSize:  cfg.BatchSize,
		cooldown:   cfg.BatchCooldown,
		maxRetries: cfg.MaxRetries,
		logger:     log,
		sleep:      sleepContext,
	}
}

// EnrichAll classifies every candidate and preserves input order. The
// result always has the same length as the input: candidates that cannot
// be classified come back with fallback enrichment, and the failure map
// records why, keyed by candidate name.
func (e *Enricher) EnrichAll(ctx context.Context, candidates []models.Candidate) ([]models.EnrichedCandidate, map[string]string) {
	enriched := make([]models.EnrichedCandidate, len(candidates))
	failures := make(map[string]string)
	if len(candidates) == 0 {
		return enriched, failures
	}

	batchSize := e.batchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	errs := make([]error, len(candidates))

	start := time.Now()
	for offset := 0; offset < len(candidates); offset += batchSize {
		end := offset + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				enriched[i], errs[i] = e.classifier.Classify(ctx, candidates[i], e.maxRetries)
			}(i)
		}
		wg.Wait()

		if end < len(candidates) && e.cooldown > 0 {
			if err := e.sleep(ctx, e.cooldown); err != nil {
				// Cancelled mid-run: fall back for whatever remains.
				for i := end; i < len(candidates); i++ {
					enriched[i] = buildFallback(candidates[i])
					errs[i] = fmt.Errorf("enrichment cancelled: %w", err)
				}
				break
			}
		}
	}

	for i, err := range errs {
		if err != nil {
			failures[candidates[i].Name] = err.Error()
		}
	}

	e.logger.Info("Enrichment complete",
		logger.Int("candidates", len(candidates)),
		logger.Int("failures", len(failures)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return enriched, failures
}
