// Package api exposes the HTTP surface: the manual trigger endpoints,
// subscription registration, run history, health, and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aitoolsdaily/collector/internal/cache"
	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/metrics"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	healthCheckTimeout   = 2 * time.Second
	serviceVersion       = "1.0.0"
)

// Router holds the API dependencies.
type Router struct {
	handlers *Handlers
	cache    *cache.Client
	metrics  *metrics.Metrics
	cfg      *config.Config
	logger   logger.Logger
}

// NewRouter creates a new API router.
func NewRouter(handlers *Handlers, cacheClient *cache.Client, m *metrics.Metrics, cfg *config.Config, log logger.Logger) *Router {
	return &Router{
		handlers: handlers,
		cache:    cacheClient,
		metrics:  m,
		cfg:      cfg,
		logger:   log,
	}
}

// SetupRoutes builds the gin engine with all routes and middleware.
func (r *Router) SetupRoutes() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(r.logger))

	router.GET("/health", r.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		r.metrics.Registry(),
		promhttp.HandlerOpts{},
	)))

	v1 := router.Group("/api/v1")

	// Subscription registration and the category table are public; browsers
	// call both directly.
	v1.POST("/subscriptions", r.handlers.subscribe)
	v1.GET("/categories", r.handlers.listCategories)

	// Trigger and inspection endpoints require the shared secret.
	protected := v1.Group("")
	protected.Use(bearerAuth(r.cfg.API.TriggerSecret))
	protected.POST("/collect",
		rateLimit(r.cache, "ratelimit:collect", r.cfg.API.RateLimit, r.cfg.API.RateWindow),
		r.handlers.triggerCollect,
	)
	protected.POST("/push", r.handlers.triggerPush)
	protected.GET("/runs", r.handlers.listRuns)

	return router
}

// healthCheck reports service health including database and Redis state.
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "collector",
		"version": serviceVersion,
	}

	dbConnected := true
	if err := r.handlers.tools.Ping(ctx); err != nil {
		dbConnected = false
		health["status"] = healthStatusDegraded
	}
	health["database"] = gin.H{"connected": dbConnected}

	redisConnected := r.cache.Enabled()
	if redisConnected {
		if err := r.cache.Ping(ctx); err != nil {
			redisConnected = false
			health["status"] = healthStatusDegraded
		}
	}
	health["redis"] = gin.H{
		"enabled":   r.cache.Enabled(),
		"connected": redisConnected,
	}

	c.JSON(http.StatusOK, health)
}
