package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
	"github.com/aitoolsdaily/collector/internal/pipeline"
	"github.com/aitoolsdaily/collector/internal/push"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100

	// collectTimeout bounds a manually triggered run. Detached from the
	// request context so a dropped connection cannot abort a run halfway
	// through persistence.
	collectTimeout = 10 * time.Minute
)

// Collector runs the collection pipeline.
type Collector interface {
	Collect(ctx context.Context) (*pipeline.Report, error)
}

// Pusher sends a notification to all subscribers.
type Pusher interface {
	Send(ctx context.Context, n push.Notification) (push.Summary, error)
}

// SubscriptionStore registers push subscriptions.
type SubscriptionStore interface {
	Upsert(ctx context.Context, endpoint, p256dh, auth string) (*models.Subscription, error)
}

// RunStore lists run history.
type RunStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.Run, error)
}

// ToolStore is only needed for the health check.
type ToolStore interface {
	Ping(ctx context.Context) error
}

// CategoryStore reads the categories lookup table.
type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
}

// Handlers implements the API endpoints.
type Handlers struct {
	collector  Collector
	pusher     Pusher
	subs       SubscriptionStore
	runs       RunStore
	tools      ToolStore
	categories CategoryStore
	logger     logger.Logger
}

// NewHandlers creates the endpoint handlers. pusher may be nil when VAPID
// keys are not configured; the push endpoint then reports unavailable.
func NewHandlers(
	collector Collector,
	pusher Pusher,
	subs SubscriptionStore,
	runs RunStore,
	tools ToolStore,
	categories CategoryStore,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		collector:  collector,
		pusher:     pusher,
		subs:       subs,
		runs:       runs,
		tools:      tools,
		categories: categories,
		logger:     log,
	}
}

// triggerCollect runs the collection pipeline synchronously and returns the
// run report.
func (h *Handlers) triggerCollect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	report, err := h.collector.Collect(ctx)
	if err != nil {
		h.logger.Error("Manual collection trigger failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

type pushRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// triggerPush sends a notification to every active subscription. Omitted
// fields fall back to the daily digest wording.
func (h *Handlers) triggerPush(c *gin.Context) {
	if h.pusher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "push not configured: VAPID keys missing",
		})
		return
	}

	var req pushRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	n := push.Notification{Title: req.Title, Body: req.Body, URL: req.URL}
	if n.Title == "" {
		n.Title = "오늘의 AI 툴"
	}
	if n.Body == "" {
		n.Body = "새로운 AI 툴이 추가되었습니다."
	}
	if n.URL == "" {
		n.URL = "/"
	}

	summary, err := h.pusher.Send(c.Request.Context(), n)
	if err != nil {
		h.logger.Error("Manual push trigger failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// subscribe registers or reactivates a push subscription.
func (h *Handlers) subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.subs.Upsert(c.Request.Context(), req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		h.logger.Error("Failed to save subscription", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": sub.ID, "is_active": sub.IsActive})
}

// listCategories returns the category lookup table, slug-ordered. Browsers
// read it to render subscription filters, so it is public.
func (h *Handlers) listCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories, "count": len(categories)})
}

// listRuns returns recent run records, newest first.
func (h *Handlers) listRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := h.runs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
