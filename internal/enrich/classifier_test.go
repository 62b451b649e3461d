package enrich

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

const classifierResponse = `{
	"content": [
		{"type": "text", "text": "{\"summary\":\"릴리스 노트를 자동으로 작성해 주는 도구입니다.\",\"category\":\"coding\",\"tags\":[\"devtools\",\"automation\"],\"pricing\":\"freemium\",\"score\":4.2}"}
	]
}`

func newTestClassifier(t *testing.T, endpoint string) *Classifier {
	t.Helper()

	c := NewClassifier(config.ClaudeConfig{
		APIKey:    "test-key",
		Model:     "claude-haiku-4-5-20251001",
		Endpoint:  endpoint,
		MaxTokens: 1024,
		Timeout:   5 * time.Second,
	}, logger.NewNopLogger())

	// No real waiting in tests.
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func testCandidate() models.Candidate {
	return models.Candidate{
		Name:        "ReleaseBot",
		URL:         "https://releasebot.example.com",
		Description: "Writes release notes from merged pull requests.",
		Source:      models.SourceManual,
	}
}

func TestClassifier_Success(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(classifierResponse))
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL)
	enriched, err := c.Classify(context.Background(), testCandidate(), 2)

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "coding", enriched.CategorySlug)
	assert.Equal(t, "freemium", enriched.PricingType)
	assert.InDelta(t, 4.2, enriched.Score, 1e-9)
	assert.Equal(t, []string{"devtools", "automation"}, enriched.Tags)
}

// A client-side 4xx cannot succeed on retry, so the classifier falls back
// after a single attempt.
func TestClassifier_ClientErrorFallsBackImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL)
	enriched, err := c.Classify(context.Background(), testCandidate(), 2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, models.CategoryOther, enriched.CategorySlug)
	assert.InDelta(t, 3.0, enriched.Score, 1e-9)
}

func TestClassifier_ServerErrorRetriesWithBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(classifierResponse))
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL)

	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	enriched, err := c.Classify(context.Background(), testCandidate(), 2)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "coding", enriched.CategorySlug)
	// Linear backoff: base x attempt.
	require.Len(t, delays, 2)
	assert.Equal(t, baseRetryDelay, delays[0])
	assert.Equal(t, 2*baseRetryDelay, delays[1])
}

func TestClassifier_ExhaustedRetriesFallBack(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL)
	enriched, err := c.Classify(context.Background(), testCandidate(), 2)

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, models.CategoryOther, enriched.CategorySlug)
	assert.Equal(t, []string{"ai", "new"}, enriched.Tags)
}

// 429 waits out the Retry-After header instead of the backoff schedule.
func TestClassifier_RateLimitHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(classifierResponse))
	}))
	defer server.Close()

	c := newTestClassifier(t, server.URL)

	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	enriched, err := c.Classify(context.Background(), testCandidate(), 2)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "coding", enriched.CategorySlug)
	require.Len(t, delays, 1)
	assert.Equal(t, 7*time.Second, delays[0])
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, rateLimitDelay, retryAfter(""))
	assert.Equal(t, rateLimitDelay, retryAfter("soon"))
	assert.Equal(t, rateLimitDelay, retryAfter("-1"))
	assert.Equal(t, 12*time.Second, retryAfter("12"))
}

func TestEnricher_PreservesOrderAndLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(classifierResponse))
	}))
	defer server.Close()

	classifier := newTestClassifier(t, server.URL)
	enricher := NewEnricher(classifier, config.CollectConfig{
		BatchSize:     2,
		BatchCooldown: time.Millisecond,
		MaxRetries:    0,
	}, logger.NewNopLogger())
	enricher.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	candidates := []models.Candidate{
		{Name: "Alpha", URL: "https://a.example.com"},
		{Name: "Beta", URL: "https://b.example.com"},
		{Name: "Gamma", URL: "https://c.example.com"},
	}

	enriched, failures := enricher.EnrichAll(context.Background(), candidates)

	require.Len(t, enriched, 3)
	assert.Empty(t, failures)
	assert.Equal(t, "Alpha", enriched[0].Name)
	assert.Equal(t, "Beta", enriched[1].Name)
	assert.Equal(t, "Gamma", enriched[2].Name)
	for _, e := range enriched {
		assert.Equal(t, "coding", e.CategorySlug)
	}
}

// Items that fall back still come home enriched, but the failure map names
// them so the run record can report the classification errors.
func TestEnricher_ReportsPerItemFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "Broken") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(classifierResponse))
	}))
	defer server.Close()

	classifier := newTestClassifier(t, server.URL)
	enricher := NewEnricher(classifier, config.CollectConfig{
		BatchSize:  5,
		MaxRetries: 0,
	}, logger.NewNopLogger())
	enricher.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	candidates := []models.Candidate{
		{Name: "Alpha", URL: "https://a.example.com"},
		{Name: "Broken", URL: "https://b.example.com"},
		{Name: "Gamma", URL: "https://c.example.com"},
	}

	enriched, failures := enricher.EnrichAll(context.Background(), candidates)

	require.Len(t, enriched, 3)
	assert.Equal(t, "coding", enriched[0].CategorySlug)
	assert.Equal(t, models.CategoryOther, enriched[1].CategorySlug)
	assert.Equal(t, "coding", enriched[2].CategorySlug)

	require.Len(t, failures, 1)
	assert.Contains(t, failures["Broken"], "404")
}

func TestEnricher_EmptyInput(t *testing.T) {
	classifier := newTestClassifier(t, "http://unused.invalid")
	enricher := NewEnricher(classifier, config.CollectConfig{BatchSize: 5}, logger.NewNopLogger())

	enriched, failures := enricher.EnrichAll(context.Background(), nil)
	assert.Empty(t, enriched)
	assert.Empty(t, failures)
}
