// Package pipeline orchestrates one collection run end to end: fetch from
// every source, deduplicate, enrich, persist, build the digest, and record
// the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aitoolsdaily/collector/internal/cache"
	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/dedup"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/metrics"
	"github.com/aitoolsdaily/collector/internal/models"
	"github.com/aitoolsdaily/collector/internal/sources"
)

// Enricher classifies accepted candidates. The failure map carries per-item
// classification errors by candidate name; those items come back with
// fallback enrichment.
type Enricher interface {
	EnrichAll(ctx context.Context, candidates []models.Candidate) ([]models.EnrichedCandidate, map[string]string)
}

// ToolStore is the slice of the tool repository the runner needs.
type ToolStore interface {
	Insert(ctx context.Context, ec *models.EnrichedCandidate) (uuid.UUID, error)
	ListRecent(ctx context.Context, limit int) ([]models.Tool, error)
}

// RunStore records run lifecycle transitions.
type RunStore interface {
	Create(ctx context.Context, source string) (uuid.UUID, error)
	Finalize(ctx context.Context, id uuid.UUID, status string, toolsFound, toolsSaved int, details any) error
}

// DigestBuilder assembles the daily digest after tools are saved.
type DigestBuilder interface {
	Build(ctx context.Context) (*models.Digest, error)
}

// SourceReport is the per-source slice of the run details.
type SourceReport struct {
	Found int    `json:"found"`
	Error string `json:"error,omitempty"`
}

// Details is the JSON report stored on the run record.
type Details struct {
	Sources              map[string]SourceReport `json:"sources"`
	Dedup                dedup.Breakdown         `json:"dedup"`
	Accepted             int                     `json:"accepted"`
	Saved                int                     `json:"saved"`
	SaveErrors           int                     `json:"save_errors"`
	ClassificationErrors map[string]string       `json:"classification_errors,omitempty"`
	DigestBuilt          bool                    `json:"digest_built"`
	Error                string                  `json:"error,omitempty"`
}

// Report is what a finished run returns to its caller.
type Report struct {
	RunID      uuid.UUID `json:"run_id"`
	Status     string    `json:"status"`
	ToolsFound int       `json:"tools_found"`
	ToolsSaved int       `json:"tools_saved"`
	Duplicates int       `json:"duplicates"`
	Details    Details   `json:"details"`
}

// Runner executes collection runs. One Runner serves both the cron schedule
// and the manual trigger endpoint; runs are serialized so overlapping
// triggers cannot double-insert.
type Runner struct {
	adapters []sources.Adapter
	dedup    *dedup.Deduplicator
	enricher Enricher
	tools    ToolStore
	runs     RunStore
	digest   DigestBuilder
	cache    *cache.Client
	metrics  *metrics.Metrics
	cfg      config.CollectConfig
	logger   logger.Logger

	// pushAfter is invoked after a run that saved tools, when configured.
	pushAfter func(ctx context.Context)

	mu sync.Mutex
}

// NewRunner wires a collection runner.
func NewRunner(
	adapters []sources.Adapter,
	deduplicator *dedup.Deduplicator,
	enricher Enricher,
	tools ToolStore,
	runs RunStore,
	digestBuilder DigestBuilder,
	cacheClient *cache.Client,
	m *metrics.Metrics,
	cfg config.CollectConfig,
	log logger.Logger,
) *Runner {
	return &Runner{
		adapters: adapters,
		dedup:    deduplicator,
		enricher: enricher,
		tools:    tools,
		runs:     runs,
		digest:   digestBuilder,
		cache:    cacheClient,
		metrics:  m,
		cfg:      cfg,
		logger:   log,
	}
}

// SetPushAfter registers the post-run push trigger. Kept out of NewRunner
// because the push dispatcher is optional.
func (r *Runner) SetPushAfter(fn func(ctx context.Context)) {
	r.pushAfter = fn
}

// Collect executes one full collection run. The run record always reaches a
// terminal status: panics and partial failures are folded into it rather
// than escaping to the caller.
func (r *Runner) Collect(ctx context.Context) (report *Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	runID, err := r.runs.Create(ctx, models.RunSourceCollect)
	if err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}
	r.logger.Info("Collection run started", logger.String("run_id", runID.String()))

	details := Details{Sources: make(map[string]SourceReport)}

	defer func() {
		if rec := recover(); rec != nil {
			details.Error = fmt.Sprintf("panic: %v", rec)
			r.finalize(runID, models.RunStatusFailed, 0, 0, details, start)
			report = nil
			err = fmt.Errorf("collection run panicked: %v", rec)
		}
	}()

	// Fetch from every source concurrently; each failure is recorded and
	// isolated so one broken source never empties the run. Even a run where
	// every source failed completes its remaining stages as no-ops and
	// finalizes partial; failed is reserved for the orchestration itself
	// blowing up.
	found, failedSources := r.fetchAll(ctx, &details)

	prior, err := r.tools.ListRecent(ctx, r.cfg.HistoryWindow)
	if err != nil {
		details.Error = fmt.Sprintf("load dedup history: %v", err)
		r.finalize(runID, models.RunStatusFailed, len(found), 0, details, start)
		return nil, fmt.Errorf("load dedup history: %w", err)
	}

	result := r.dedup.Run(found, prior)
	details.Dedup = result.Breakdown
	details.Accepted = len(result.Accepted)
	r.metrics.DuplicatesDropped("url", result.Breakdown.URLDuplicates)
	r.metrics.DuplicatesDropped("name", result.Breakdown.NameDuplicates)
	r.metrics.DuplicatesDropped("batch", result.Breakdown.BatchDuplicates)

	enriched, classificationErrors := r.enricher.EnrichAll(ctx, result.Accepted)
	if len(classificationErrors) > 0 {
		details.ClassificationErrors = classificationErrors
	}

	saved := 0
	for i := range enriched {
		if _, err := r.tools.Insert(ctx, &enriched[i]); err != nil {
			if errors.Is(err, models.ErrAlreadyExists) {
				// Lost a race with a concurrent writer; count with the
				// other duplicates.
				details.Dedup.URLDuplicates++
				continue
			}
			details.SaveErrors++
			r.logger.Error("Failed to save tool",
				logger.String("tool", enriched[i].Name),
				logger.Error(err),
			)
			continue
		}
		saved++
	}
	details.Saved = saved
	r.metrics.ToolsSaved(saved)

	if saved > 0 {
		if _, err := r.digest.Build(ctx); err != nil {
			details.SaveErrors++
			r.logger.Error("Digest build failed", logger.Error(err))
		} else {
			details.DigestBuilt = true
		}
	}

	status := models.RunStatusSuccess
	if failedSources > 0 || details.SaveErrors > 0 || len(details.ClassificationErrors) > 0 {
		status = models.RunStatusPartial
	}
	r.finalize(runID, status, len(found), saved, details, start)

	// Post-run effects never change the run outcome.
	if saved > 0 {
		r.invalidateCache(ctx)
		if r.cfg.PushAfterCollect && r.pushAfter != nil {
			r.pushAfter(ctx)
		}
	}

	duplicates := details.Dedup.URLDuplicates + details.Dedup.NameDuplicates +
		details.Dedup.BatchDuplicates

	r.logger.Info("Collection run complete",
		logger.String("run_id", runID.String()),
		logger.String("status", status),
		logger.Int("found", len(found)),
		logger.Int("duplicates", duplicates),
		logger.Int("saved", saved),
		logger.Duration("elapsed", time.Since(start)),
	)

	return &Report{
		RunID:      runID,
		Status:     status,
		ToolsFound: len(found),
		ToolsSaved: saved,
		Duplicates: duplicates,
		Details:    details,
	}, nil
}

// fetchAll settles every adapter and returns the combined candidates and
// the number of adapters that failed.
func (r *Runner) fetchAll(ctx context.Context, details *Details) ([]models.Candidate, int) {
	type fetchResult struct {
		name       string
		candidates []models.Candidate
		err        error
	}

	results := make([]fetchResult, len(r.adapters))
	var wg sync.WaitGroup
	for i, adapter := range r.adapters {
		wg.Add(1)
		go func(i int, adapter sources.Adapter) {
			defer wg.Done()
			candidates, err := adapter.Fetch(ctx)
			results[i] = fetchResult{name: adapter.Name(), candidates: candidates, err: err}
		}(i, adapter)
	}
	wg.Wait()

	var found []models.Candidate
	failed := 0
	for _, res := range results {
		report := SourceReport{Found: len(res.candidates)}
		if res.err != nil {
			failed++
			report.Error = res.err.Error()
			r.logger.Error("Source fetch failed",
				logger.String("source", res.name),
				logger.Error(res.err),
			)
		}
		details.Sources[res.name] = report
		found = append(found, res.candidates...)
		r.metrics.CandidatesFetched(res.name, len(res.candidates))
	}
	return found, failed
}

func (r *Runner) finalize(runID uuid.UUID, status string, found, saved int, details Details, start time.Time) {
	// Finalization must survive a cancelled run context.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.runs.Finalize(ctx, runID, status, found, saved, details); err != nil {
		r.logger.Error("Failed to finalize run record",
			logger.String("run_id", runID.String()),
			logger.Error(err),
		)
	}
	r.metrics.RunCompleted(status, time.Since(start))
}

func (r *Runner) invalidateCache(ctx context.Context) {
	if r.cache == nil || !r.cache.Enabled() {
		return
	}
	if _, err := r.cache.InvalidatePattern(ctx, r.cfg.CacheKeyPattern); err != nil {
		r.logger.Error("Cache invalidation failed", logger.Error(err))
	}
}
