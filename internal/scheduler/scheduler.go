// Package scheduler runs the daily collect and push jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
)

// jobTimeout bounds one scheduled execution.
const jobTimeout = 15 * time.Minute

// Scheduler owns the cron runner for the two daily jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger logger.Logger
}

// New builds the scheduler from the configured cron specs. collectFn and
// pushFn run in cron's goroutines; panics are recovered by the cron chain.
func New(
	cfg config.CollectConfig,
	collectFn func(ctx context.Context) error,
	pushFn func(ctx context.Context) error,
	log logger.Logger,
) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := c.AddFunc(cfg.Schedule, wrap("collect", collectFn, log)); err != nil {
		return nil, fmt.Errorf("invalid collect schedule %q: %w", cfg.Schedule, err)
	}
	if pushFn != nil {
		if _, err := c.AddFunc(cfg.PushSchedule, wrap("push", pushFn, log)); err != nil {
			return nil, fmt.Errorf("invalid push schedule %q: %w", cfg.PushSchedule, err)
		}
	}

	log.Info("Scheduler configured",
		logger.String("collect_schedule", cfg.Schedule),
		logger.String("push_schedule", cfg.PushSchedule),
	)

	return &Scheduler{cron: c, logger: log}, nil
}

func wrap(name string, fn func(ctx context.Context) error, log logger.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		log.Info("Scheduled job starting", logger.String("job", name))
		if err := fn(ctx); err != nil {
			log.Error("Scheduled job failed",
				logger.String("job", name),
				logger.Error(err),
			)
			return
		}
		log.Info("Scheduled job finished", logger.String("job", name))
	}
}

// Start begins scheduling. Non-blocking.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs and stops scheduling.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}
