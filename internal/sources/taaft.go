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
	taaftURL  = "https://theresanaiforthat.com/new/"
	taaftBase = "https://theresanaiforthat.com"
)

// TAAFT scrapes the "new tools" page of There's An AI For That. It prefers
// the JSON-LD ItemList embedded in the page and falls back to parsing the
// tool cards directly.
type TAAFT struct {
	url    string
	cap    int
	client *http.Client
	logger logger.Logger
}

// NewTAAFT creates the TAAFT adapter.
func NewTAAFT(limit int, timeout time.Duration, log logger.Logger) *TAAFT {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &TAAFT{
		url:    taaftURL,
		cap:    limit,
		client: newHTTPClient(timeout),
		logger: log,
	}
}

// Name implements Adapter.
func (t *TAAFT) Name() string { return models.SourceTAAFT }

// Fetch implements Adapter.
func (t *TAAFT) Fetch(ctx context.Context) ([]models.Candidate, error) {
	body, err := fetchHTML(ctx, t.client, t.url)
	if err != nil {
		return nil, fmt.Errorf("taaft: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("taaft: parse html: %w", err)
	}

	strategies := []htmlStrategy{
		{name: "json-ld", extract: t.extractJSONLD},
		{name: "tool-cards", extract: t.extractCards},
	}

	candidates := runStrategies(strategies, doc, t.logger)
	candidates = capCandidates(candidates, t.cap)

	t.logger.Info("TAAFT fetch complete", logger.Int("count", len(candidates)))
	return candidates, nil
}

type jsonLDList struct {
	Type            string `json:"@type"`
	ItemListElement []struct {
		Item *jsonLDThing `json:"item"`
		jsonLDThing
	} `json:"itemListElement"`
}

type jsonLDThing struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// extractJSONLD pulls candidates out of ld+json ItemList blocks.
func (t *TAAFT) extractJSONLD(doc *goquery.Document) []models.Candidate {
	var candidates []models.Candidate

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var list jsonLDList
		if err := json.Unmarshal([]byte(sel.Text()), &list); err != nil {
			return // malformed block, try the next one
		}
		if list.Type != "ItemList" {
			return
		}

		for _, element := range list.ItemListElement {
			thing := element.jsonLDThing
			if element.Item != nil {
				thing = *element.Item
			}
			if thing.Name == "" || thing.URL == "" {
				continue
			}

			url := thing.URL
			if !strings.HasPrefix(url, "http") {
				url = taaftBase + url
			}

			candidates = append(candidates, models.Candidate{
				Name:        thing.Name,
				URL:         url,
				Description: thing.Description,
				LogoURL:     thing.Image,
				Source:      models.SourceTAAFT,
				SourceURL:   url,
			})
		}
	})

	return candidates
}

// extractCards parses the /ai/ tool card links as a layout fallback.
func (t *TAAFT) extractCards(doc *goquery.Document) []models.Candidate {
	var candidates []models.Candidate
	seen := make(map[string]struct{})

	doc.Find(`a[href^="/ai/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		name := strings.TrimSpace(sel.Find("h2, h3, h4, strong").First().Text())
		if name == "" {
			name = strings.TrimSpace(strings.SplitN(sel.Text(), "\n", 2)[0])
		}
		if len(name) < 2 || len(name) > 100 {
			return
		}

		url := taaftBase + href
		candidates = append(candidates, models.Candidate{
			Name:        name,
			URL:         url,
			Description: strings.TrimSpace(sel.Find("p").First().Text()),
			LogoURL:     sel.Find("img").First().AttrOr("src", ""),
			Source:      models.SourceTAAFT,
			SourceURL:   url,
		})
	})

	return candidates
}
