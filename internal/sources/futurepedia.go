package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

const (
	futurepediaURL  = "https://www.futurepedia.io/ai-tools?sort=new"
	futurepediaBase = "https://www.futurepedia.io"
)

// Futurepedia scrapes the newest tools listing. The site is a Next.js app,
// so the primary strategy reads the __NEXT_DATA__ payload; the page props
// key and per-item field names have changed before, so both are probed as
// ordered lists rather than a single expected shape.
type Futurepedia struct {
	url    string
	cap    int
	client *http.Client
	logger logger.Logger
}

// NewFuturepedia creates the Futurepedia adapter.
func NewFuturepedia(limit int, timeout time.Duration, log logger.Logger) *Futurepedia {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Futurepedia{
		url:    futurepediaURL,
		cap:    limit,
		client: newHTTPClient(timeout),
		logger: log,
	}
}

// Name implements Adapter.
func (f *Futurepedia) Name() string { return models.SourceFuturepedia }

// Fetch implements Adapter.
func (f *Futurepedia) Fetch(ctx context.Context) ([]models.Candidate, error) {
	body, err := fetchHTML(ctx, f.client, f.url)
	if err != nil {
		return nil, fmt.Errorf("futurepedia: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("futurepedia: parse html: %w", err)
	}

	strategies := []htmlStrategy{
		{name: "next-data", extract: f.extractNextData},
		{name: "tool-cards", extract: f.extractCards},
	}

	candidates := runStrategies(strategies, doc, f.logger)
	candidates = capCandidates(candidates, f.cap)

	f.logger.Info("Futurepedia fetch complete", logger.Int("count", len(candidates)))
	return candidates, nil
}

// toolListKeys are the page-props keys probed, in order, for the tool array.
var toolListKeys = []string{"tools", "initialTools", "aiTools"}

// extractNextData reads tools from the embedded __NEXT_DATA__ JSON.
func (f *Futurepedia) extractNextData(doc *goquery.Document) []models.Candidate {
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if raw == "" {
		return nil
	}

	var nextData struct {
		Props struct {
			PageProps map[string]any `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(raw), &nextData); err != nil {
		f.logger.Warn("Futurepedia __NEXT_DATA__ parse failed", logger.Error(err))
		return nil
	}

	items := probeToolList(nextData.Props.PageProps)
	if len(items) == 0 {
		return nil
	}
	if len(items) > f.cap {
		items = items[:f.cap]
	}

	var candidates []models.Candidate
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		name := firstString(entry, "toolName", "name", "title")
		url := firstString(entry, "toolUrl", "websiteUrl", "url", "link")
		if name == "" || url == "" {
			continue
		}

		sourceURL := ""
		if page := firstString(entry, "futurepediaUrl"); page != "" {
			sourceURL = futurepediaBase + page
		} else if slug := firstString(entry, "slug"); slug != "" {
			sourceURL = futurepediaBase + "/tool/" + slug
		}

		candidates = append(candidates, models.Candidate{
			Name:        name,
			URL:         url,
			Description: firstString(entry, "toolShortDescription", "shortDescription", "description"),
			LogoURL:     firstString(entry, "toolImage", "logo", "image", "favicon"),
			Source:      models.SourceFuturepedia,
			SourceURL:   sourceURL,
			Metadata: map[string]any{
				"categories": entry["toolCategories"],
				"pricing":    firstString(entry, "pricing", "pricingModel"),
			},
		})
	}

	return candidates
}

// probeToolList tries the known page-props locations for the tool array.
func probeToolList(pageProps map[string]any) []any {
	for _, key := range toolListKeys {
		if items, ok := pageProps[key].([]any); ok && len(items) > 0 {
			return items
		}
	}
	if data, ok := pageProps["data"].(map[string]any); ok {
		if items, ok := data["tools"].([]any); ok {
			return items
		}
	}
	return nil
}

// firstString returns the first key that holds a non-empty string value.
func firstString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := entry[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// extractCards parses /tool/ card links as a layout fallback.
func (f *Futurepedia) extractCards(doc *goquery.Document) []models.Candidate {
	var candidates []models.Candidate
	seen := make(map[string]struct{})

	doc.Find(`a[href^="/tool/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		name := strings.TrimSpace(sel.Find("h2, h3, h4").First().Text())
		if len(name) < 2 {
			return
		}

		url := futurepediaBase + href
		candidates = append(candidates, models.Candidate{
			Name:        name,
			URL:         url,
			Description: strings.TrimSpace(sel.Find("p").First().Text()),
			LogoURL:     sel.Find("img").First().AttrOr("src", ""),
			Source:      models.SourceFuturepedia,
			SourceURL:   url,
		})
	})

	return candidates
}
