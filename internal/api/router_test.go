package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitoolsdaily/collector/internal/api"
	"github.com/aitoolsdaily/collector/internal/cache"
	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/metrics"
	"github.com/aitoolsdaily/collector/internal/models"
	"github.com/aitoolsdaily/collector/internal/pipeline"
	"github.com/aitoolsdaily/collector/internal/push"
)

const testSecret = "test-secret"

type fakeCollector struct {
	report *pipeline.Report
	err    error
	calls  int
}

func (f *fakeCollector) Collect(ctx context.Context) (*pipeline.Report, error) {
	f.calls++
	return f.report, f.err
}

type fakePusher struct {
	summary  push.Summary
	err      error
	received push.Notification
}

func (f *fakePusher) Send(ctx context.Context, n push.Notification) (push.Summary, error) {
	f.received = n
	return f.summary, f.err
}

type fakeSubStore struct {
	sub *models.Subscription
	err error
}

func (f *fakeSubStore) Upsert(ctx context.Context, endpoint, p256dh, auth string) (*models.Subscription, error) {
	return f.sub, f.err
}

type fakeRunStore struct {
	runs      []models.Run
	err       error
	lastLimit int
}

func (f *fakeRunStore) ListRecent(ctx context.Context, limit int) ([]models.Run, error) {
	f.lastLimit = limit
	return f.runs, f.err
}

type fakeToolStore struct {
	pingErr error
}

func (f *fakeToolStore) Ping(ctx context.Context) error { return f.pingErr }

type fakeCategoryStore struct {
	categories []models.Category
	err        error
}

func (f *fakeCategoryStore) List(ctx context.Context) ([]models.Category, error) {
	return f.categories, f.err
}

type testDeps struct {
	collector  *fakeCollector
	pusher     *fakePusher
	subs       *fakeSubStore
	runs       *fakeRunStore
	tools      *fakeToolStore
	categories *fakeCategoryStore
}

func newTestRouter(t *testing.T, deps testDeps) http.Handler {
	t.Helper()

	log := logger.NewNopLogger()
	var pusher api.Pusher
	if deps.pusher != nil {
		pusher = deps.pusher
	}

	categories := deps.categories
	if categories == nil {
		categories = &fakeCategoryStore{}
	}
	handlers := api.NewHandlers(deps.collector, pusher, deps.subs, deps.runs, deps.tools, categories, log)

	cfg := &config.Config{}
	cfg.API.TriggerSecret = testSecret
	cfg.API.RateLimit = 100
	cfg.API.RateWindow = 0

	router := api.NewRouter(handlers, cache.New(config.RedisConfig{}, log), metrics.New(), cfg, log)
	return router.SetupRoutes()
}

func doRequest(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestTriggerCollect(t *testing.T) {
	collector := &fakeCollector{report: &pipeline.Report{
		RunID:      uuid.New(),
		Status:     models.RunStatusSuccess,
		ToolsFound: 5,
		ToolsSaved: 3,
	}}
	handler := newTestRouter(t, testDeps{
		collector: collector,
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/collect", testSecret, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, collector.calls)

	var report pipeline.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, models.RunStatusSuccess, report.Status)
	assert.Equal(t, 3, report.ToolsSaved)
}

func TestTriggerCollect_Unauthorized(t *testing.T) {
	collector := &fakeCollector{}
	handler := newTestRouter(t, testDeps{
		collector: collector,
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "wrong token", token: "wrong"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/api/v1/collect", tc.token, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Zero(t, collector.calls)
}

func TestTriggerCollect_CollectError(t *testing.T) {
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{err: errors.New("all sources failed")},
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/collect", testSecret, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "all sources failed")
}

func TestProtectedRoutes_NoSecretConfigured(t *testing.T) {
	log := logger.NewNopLogger()
	handlers := api.NewHandlers(
		&fakeCollector{}, nil, &fakeSubStore{}, &fakeRunStore{}, &fakeToolStore{},
		&fakeCategoryStore{}, log,
	)
	cfg := &config.Config{} // no trigger secret
	router := api.NewRouter(handlers, cache.New(config.RedisConfig{}, log), metrics.New(), cfg, log)
	handler := router.SetupRoutes()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/collect", "anything", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTriggerPush_Defaults(t *testing.T) {
	pusher := &fakePusher{summary: push.Summary{Sent: 2, Total: 2}}
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		pusher:    pusher,
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/push", testSecret, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "오늘의 AI 툴", pusher.received.Title)
	assert.Equal(t, "새로운 AI 툴이 추가되었습니다.", pusher.received.Body)
	assert.Equal(t, "/", pusher.received.URL)
}

func TestTriggerPush_CustomBody(t *testing.T) {
	pusher := &fakePusher{}
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		pusher:    pusher,
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	body := `{"title":"Custom","body":"Hand-written","url":"/tools"}`
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/push", testSecret, body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Custom", pusher.received.Title)
	assert.Equal(t, "Hand-written", pusher.received.Body)
	assert.Equal(t, "/tools", pusher.received.URL)
}

func TestTriggerPush_NotConfigured(t *testing.T) {
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		pusher:    nil,
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/push", testSecret, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "VAPID")
}

func TestSubscribe(t *testing.T) {
	subID := uuid.New()
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		subs:      &fakeSubStore{sub: &models.Subscription{ID: subID, IsActive: true}},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	body := `{
		"endpoint": "https://fcm.googleapis.com/fcm/send/abc",
		"keys": {"p256dh": "key-material", "auth": "auth-secret"}
	}`
	// Public endpoint, no token required.
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/subscriptions", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID       uuid.UUID `json:"id"`
		IsActive bool      `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, subID, resp.ID)
	assert.True(t, resp.IsActive)
}

func TestSubscribe_InvalidPayload(t *testing.T) {
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing keys", body: `{"endpoint": "https://example.com/push"}`},
		{name: "endpoint not a url", body: `{"endpoint": "nope", "keys": {"p256dh": "a", "auth": "b"}}`},
		{name: "empty body", body: `{}`},
		{name: "malformed json", body: `{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/api/v1/subscriptions", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListRuns(t *testing.T) {
	runs := &fakeRunStore{runs: []models.Run{{ID: uuid.New()}, {ID: uuid.New()}}}
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		subs:      &fakeSubStore{},
		runs:      runs,
		tools:     &fakeToolStore{},
	})

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/runs", testSecret, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, runs.lastLimit)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestListRuns_LimitHandling(t *testing.T) {
	runs := &fakeRunStore{}
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		subs:      &fakeSubStore{},
		runs:      runs,
		tools:     &fakeToolStore{},
	})

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/runs?limit=5", testSecret, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, runs.lastLimit)

	// Oversized limits are clamped, not rejected.
	rec = doRequest(t, handler, http.MethodGet, "/api/v1/runs?limit=9999", testSecret, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, runs.lastLimit)

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/runs?limit=0", testSecret, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/api/v1/runs?limit=abc", testSecret, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCategories(t *testing.T) {
	categories := &fakeCategoryStore{categories: []models.Category{
		{ID: uuid.New(), Slug: "coding", Name: "코딩"},
		{ID: uuid.New(), Slug: "other", Name: "기타"},
	}}
	handler := newTestRouter(t, testDeps{
		collector:  &fakeCollector{},
		subs:       &fakeSubStore{},
		runs:       &fakeRunStore{},
		tools:      &fakeToolStore{},
		categories: categories,
	})

	// Public endpoint, no token required.
	rec := doRequest(t, handler, http.MethodGet, "/api/v1/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Contains(t, rec.Body.String(), `"slug":"coding"`)
}

func TestListCategories_StoreError(t *testing.T) {
	handler := newTestRouter(t, testDeps{
		collector:  &fakeCollector{},
		subs:       &fakeSubStore{},
		runs:       &fakeRunStore{},
		tools:      &fakeToolStore{},
		categories: &fakeCategoryStore{err: errors.New("db down")},
	})

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/categories", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	rec := doRequest(t, handler, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{pingErr: errors.New("connection refused")},
	})

	rec := doRequest(t, handler, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestRouter(t, testDeps{
		collector: &fakeCollector{},
		subs:      &fakeSubStore{},
		runs:      &fakeRunStore{},
		tools:     &fakeToolStore{},
	})

	rec := doRequest(t, handler, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
