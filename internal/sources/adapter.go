// Package sources implements the per-source candidate fetchers. Every
// adapter speaks its own upstream protocol but returns the same thing: a
// slice of models.Candidate. Adapters fail independently and degrade to
// empty results when an expected response shape is missing, because none of
// the upstream formats are contractually stable.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aitoolsdaily/collector/internal/models"
)

// Adapter is the uniform contract every source fetcher implements.
type Adapter interface {
	// Name identifies the source in run reports and logs.
	Name() string

	// Fetch returns newly discovered candidates. A failure applies to this
	// adapter only; callers isolate it from sibling adapters.
	Fetch(ctx context.Context) ([]models.Candidate, error)
}

// DefaultCap bounds how many candidates a single source may contribute.
const DefaultCap = 30

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodySize caps response reads; upstream pages are untrusted input.
const maxBodySize = 10 << 20

// fetchHTML performs a browser-like GET and returns the body.
func fetchHTML(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// newHTTPClient returns a client with the per-call upper-bound timeout used
// by all adapters.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// capCandidates truncates a result to at most limit entries.
func capCandidates(candidates []models.Candidate, limit int) []models.Candidate {
	if limit > 0 && len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}
