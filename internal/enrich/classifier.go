// Package enrich turns raw candidates into enriched tools by classifying
// them through the Claude messages API. Every candidate ends up enriched:
// a classification that cannot be obtained after retries falls back to
// conservative defaults instead of dropping the tool.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

const (
	anthropicVersion = "2023-06-01"
	baseRetryDelay   = 2 * time.Second
	rateLimitDelay   = 3 * time.Second
)

// Classifier calls the classification endpoint for one candidate at a time.
type Classifier struct {
	cfg    config.ClaudeConfig
	client *http.Client
	logger logger.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClassifier creates a Classifier from config.
func NewClassifier(cfg config.ClaudeConfig, log logger.Logger) *Classifier {
	return &Classifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
		sleep:  sleepContext,
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Classify enriches one candidate. It retries transient failures up to
// maxRetries extra attempts; a rate-limited response waits out the
// Retry-After header instead of the backoff schedule. Any terminal failure
// returns the fallback enrichment together with the cause, so one bad
// response never loses a tool but the run record still sees the failure.
func (c *Classifier) Classify(ctx context.Context, candidate models.Candidate, maxRetries int) (models.EnrichedCandidate, error) {
	attempts := maxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.call(ctx, candidate)

		switch {
		case err == nil && result.status == http.StatusOK:
			classification, parseErr := parseClassification(result.text)
			if parseErr != nil {
				c.logger.Warn("Classification response unparseable",
					logger.String("tool", candidate.Name),
					logger.Error(parseErr),
				)
				return buildFallback(candidate), fmt.Errorf("unparseable response: %w", parseErr)
			}
			return applyClassification(candidate, classification), nil

		case result.status == http.StatusTooManyRequests:
			delay := retryAfter(result.retryAfter)
			c.logger.Warn("Classification rate limited",
				logger.String("tool", candidate.Name),
				logger.Duration("retry_after", delay),
			)
			if attempt == attempts || c.sleep(ctx, delay) != nil {
				return buildFallback(candidate), fmt.Errorf("rate limited after %d attempt(s)", attempt)
			}

		case err != nil || result.status >= http.StatusInternalServerError:
			delay := baseRetryDelay * time.Duration(attempt)
			c.logger.Warn("Classification attempt failed",
				logger.String("tool", candidate.Name),
				logger.Int("attempt", attempt),
				logger.Int("status", result.status),
				logger.NamedError("cause", err),
			)
			if attempt == attempts || c.sleep(ctx, delay) != nil {
				if err != nil {
					return buildFallback(candidate), fmt.Errorf("exhausted %d attempt(s): %w", attempt, err)
				}
				return buildFallback(candidate), fmt.Errorf("exhausted %d attempt(s), last status %d", attempt, result.status)
			}

		default:
			// Remaining 4xx statuses are our fault; retrying cannot help.
			c.logger.Warn("Classification rejected",
				logger.String("tool", candidate.Name),
				logger.Int("status", result.status),
			)
			return buildFallback(candidate), fmt.Errorf("rejected with status %d", result.status)
		}
	}

	return buildFallback(candidate), fmt.Errorf("exhausted %d attempt(s)", attempts)
}

type callResult struct {
	text       string
	status     int
	retryAfter string
}

func (c *Classifier) call(ctx context.Context, candidate models.Candidate) (callResult, error) {
	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: buildPrompt(candidate)}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return callResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return callResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return callResult{}, fmt.Errorf("classification call: %w", err)
	}
	defer resp.Body.Close()

	result := callResult{
		status:     resp.StatusCode,
		retryAfter: resp.Header.Get("Retry-After"),
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return result, nil
	}

	var parsed messagesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return result, fmt.Errorf("decode response: %w", err)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			result.text = block.Text
			return result, nil
		}
	}
	return result, fmt.Errorf("response has no text content")
}

// retryAfter converts a Retry-After header to a delay, defaulting when the
// header is absent or malformed.
func retryAfter(header string) time.Duration {
	if header == "" {
		return rateLimitDelay
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return rateLimitDelay
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
