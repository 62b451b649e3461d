package scheduler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/scheduler"
)

func noopJob(ctx context.Context) error { return nil }

func TestNew(t *testing.T) {
	s, err := scheduler.New(config.CollectConfig{
		Schedule:     "0 6 * * *",
		PushSchedule: "30 6 * * *",
	}, noopJob, noopJob, logger.NewNopLogger())

	require.NoError(t, err)
	require.NotNil(t, s)

	s.Start()
	s.Stop()
}

func TestNew_NilPushJobIsSkipped(t *testing.T) {
	// An invalid push spec must not matter when there is no push job.
	s, err := scheduler.New(config.CollectConfig{
		Schedule:     "*/5 * * * *",
		PushSchedule: "not a cron spec",
	}, noopJob, nil, logger.NewNopLogger())

	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestNew_InvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.CollectConfig
	}{
		{
			name: "bad collect schedule",
			cfg:  config.CollectConfig{Schedule: "once a day", PushSchedule: "30 6 * * *"},
		},
		{
			name: "bad push schedule",
			cfg:  config.CollectConfig{Schedule: "0 6 * * *", PushSchedule: "@@@"},
		},
		{
			name: "seconds field rejected",
			cfg:  config.CollectConfig{Schedule: "0 0 6 * * *", PushSchedule: "30 6 * * *"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scheduler.New(tc.cfg, noopJob, noopJob, logger.NewNopLogger())
			assert.Error(t, err)
		})
	}
}
