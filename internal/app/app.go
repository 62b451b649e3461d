// Package app provides the application lifecycle management for the
// collector service: dependency wiring, the HTTP server, the scheduler,
// and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aitoolsdaily/collector/internal/api"
	"github.com/aitoolsdaily/collector/internal/cache"
	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/database"
	"github.com/aitoolsdaily/collector/internal/dedup"
	"github.com/aitoolsdaily/collector/internal/digest"
	"github.com/aitoolsdaily/collector/internal/enrich"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/metrics"
	"github.com/aitoolsdaily/collector/internal/pipeline"
	"github.com/aitoolsdaily/collector/internal/push"
	"github.com/aitoolsdaily/collector/internal/scheduler"
	"github.com/aitoolsdaily/collector/internal/sources"
)

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// App is the collector application with all its dependencies wired.
type App struct {
	config     *config.Config
	logger     logger.Logger
	db         *sqlx.DB
	cache      *cache.Client
	runner     *pipeline.Runner
	dispatcher *push.Dispatcher
	scheduler  *scheduler.Scheduler
	httpServer *http.Server
	version    string
}

// Options contains configuration for creating a new App.
type Options struct {
	ConfigPath string
	Version    string
}

// New creates an App with every dependency initialized.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "collector"),
		logger.String("version", opts.Version),
	)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	cacheClient := cache.New(cfg.Redis, appLogger)
	m := metrics.New()

	tools := database.NewToolRepository(db)
	runs := database.NewRunRepository(db)
	digests := database.NewDigestRepository(db)
	subs := database.NewSubscriptionRepository(db)
	categories := database.NewCategoryRepository(db)

	adapters := buildAdapters(cfg, appLogger)

	classifier := enrich.NewClassifier(cfg.Claude, appLogger)
	enricher := enrich.NewEnricher(classifier, cfg.Collect, appLogger)
	deduplicator := dedup.NewDeduplicator(cfg.Collect.SimilarityThreshold, appLogger)
	digestBuilder := digest.NewBuilder(tools, digests, appLogger)

	runner := pipeline.NewRunner(
		adapters, deduplicator, enricher, tools, runs,
		digestBuilder, cacheClient, m, cfg.Collect, appLogger,
	)

	// Push is optional: without VAPID keys the collector still collects.
	var dispatcher *push.Dispatcher
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		dispatcher, err = push.NewDispatcher(cfg.Push, subs, runs, m, appLogger)
		if err != nil {
			_ = appLogger.Sync()
			db.Close()
			return nil, fmt.Errorf("create push dispatcher: %w", err)
		}
		runner.SetPushAfter(func(ctx context.Context) {
			if err := sendDailyPush(ctx, dispatcher, tools, appLogger); err != nil {
				appLogger.Error("Post-collect push failed", logger.Error(err))
			}
		})
	} else {
		appLogger.Warn("VAPID keys not configured, push disabled")
	}

	sched, err := buildScheduler(cfg, runner, dispatcher, tools, appLogger)
	if err != nil {
		_ = appLogger.Sync()
		db.Close()
		return nil, err
	}

	var pusher api.Pusher
	if dispatcher != nil {
		pusher = dispatcher
	}
	handlers := api.NewHandlers(runner, pusher, subs, runs, tools, categories, appLogger)
	router := api.NewRouter(handlers, cacheClient, m, cfg, appLogger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		config:     cfg,
		logger:     appLogger,
		db:         db,
		cache:      cacheClient,
		runner:     runner,
		dispatcher: dispatcher,
		scheduler:  sched,
		httpServer: httpServer,
		version:    opts.Version,
	}, nil
}

// buildAdapters creates every enabled source adapter. Sources named in
// sources.disabled are skipped.
func buildAdapters(cfg *config.Config, log logger.Logger) []sources.Adapter {
	disabled := make(map[string]struct{}, len(cfg.Sources.Disabled))
	for _, name := range cfg.Sources.Disabled {
		disabled[name] = struct{}{}
	}

	all := []sources.Adapter{
		sources.NewProductHunt(cfg.Sources.ProductHuntToken, cfg.Collect.SourceCap, cfg.Collect.FetchTimeout, log),
		sources.NewTAAFT(cfg.Collect.SourceCap, cfg.Collect.FetchTimeout, log),
		sources.NewFuturepedia(cfg.Collect.SourceCap, cfg.Collect.FetchTimeout, log),
		sources.NewRSS(cfg.Sources.RSSFeeds, cfg.Collect.SourceCap, cfg.Collect.FetchTimeout, log),
	}

	adapters := make([]sources.Adapter, 0, len(all))
	for _, adapter := range all {
		if _, skip := disabled[adapter.Name()]; skip {
			log.Info("Source disabled by config", logger.String("source", adapter.Name()))
			continue
		}
		adapters = append(adapters, adapter)
	}
	return adapters
}

func buildScheduler(
	cfg *config.Config,
	runner *pipeline.Runner,
	dispatcher *push.Dispatcher,
	tools *database.ToolRepository,
	log logger.Logger,
) (*scheduler.Scheduler, error) {
	collectFn := func(ctx context.Context) error {
		_, err := runner.Collect(ctx)
		return err
	}

	var pushFn func(ctx context.Context) error
	if dispatcher != nil {
		pushFn = func(ctx context.Context) error {
			return sendDailyPush(ctx, dispatcher, tools, log)
		}
	}

	return scheduler.New(cfg.Collect, collectFn, pushFn, log)
}

// sendDailyPush sends the daily notification. A day with no new tools sends
// nothing; subscribers only hear from us when there is something to read.
func sendDailyPush(
	ctx context.Context,
	dispatcher *push.Dispatcher,
	tools *database.ToolRepository,
	log logger.Logger,
) error {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	count, err := tools.CountCreatedSince(ctx, midnight)
	if err != nil {
		return fmt.Errorf("count today's tools: %w", err)
	}
	if count == 0 {
		log.Info("No new tools today, skipping push")
		return nil
	}

	_, err = dispatcher.Send(ctx, push.Notification{
		Title: "오늘의 AI 툴",
		Body:  fmt.Sprintf("새로운 AI 툴 %d개가 추가되었습니다.", count),
		URL:   "/",
	})
	return err
}

// Run starts the scheduler and HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting",
			logger.String("address", a.config.Server.Address),
			logger.Bool("debug", a.config.Debug),
		)
		serverErr <- a.httpServer.ListenAndServe()
	}()

	return a.waitForShutdown(ctx, serverErr)
}

// RunOnce executes one collection run and exits. Used by the collect
// subcommand.
func (a *App) RunOnce(ctx context.Context) error {
	_, err := a.runner.Collect(ctx)
	return err
}

// PushOnce sends one notification to all subscribers and exits. Used by the
// push subcommand.
func (a *App) PushOnce(ctx context.Context, n push.Notification) error {
	if a.dispatcher == nil {
		return errors.New("push not configured: VAPID keys missing")
	}
	_, err := a.dispatcher.Send(ctx, n)
	return err
}

func (a *App) waitForShutdown(ctx context.Context, serverErr chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully", logger.String("signal", sig.String()))

	case <-ctx.Done():
		a.logger.Info("Shutting down: context cancelled")

	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", logger.Error(err))
			a.scheduler.Stop()
			return err
		}
	}

	a.scheduler.Stop()
	a.shutdownHTTPServer()
	a.logger.Info("Service stopped")
	return nil
}

func (a *App) shutdownHTTPServer() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
	} else {
		a.logger.Info("HTTP server stopped")
	}
}

// Close releases database, cache, and logger resources.
func (a *App) Close() error {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("Failed to close Redis client", logger.Error(err))
	}
	a.db.Close()
	return a.logger.Sync()
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}
