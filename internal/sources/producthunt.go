package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

const productHuntURL = "https://api.producthunt.com/v2/api/graphql"

// aiTopics are Product Hunt topic slugs that mark a post as AI-related.
var aiTopics = map[string]struct{}{
	"artificial-intelligence": {}, "machine-learning": {}, "ai": {},
	"generative-ai": {}, "chatgpt": {}, "llm": {},
	"natural-language-processing": {}, "computer-vision": {},
	"ai-tools": {}, "deep-learning": {}, "text-to-image": {},
	"text-to-video": {}, "ai-assistants": {}, "ai-chatbots": {},
	"ai-writing": {}, "ai-coding": {},
}

// aiKeywords matches posts by name/tagline when no AI topic is attached.
var aiKeywords = regexp.MustCompile(`(?i)\b(ai|artificial intelligence|gpt|llm|machine learning|neural|deep learning|generative|copilot|chatbot|automation)\b`)

// ProductHunt fetches recent AI-related launches through the Product Hunt
// GraphQL API.
type ProductHunt struct {
	token  string
	cap    int
	client *http.Client
	logger logger.Logger
}

// NewProductHunt creates the Product Hunt adapter. An empty token disables
// the adapter: it reports zero candidates instead of failing.
func NewProductHunt(token string, limit int, timeout time.Duration, log logger.Logger) *ProductHunt {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &ProductHunt{
		token:  token,
		cap:    limit,
		client: newHTTPClient(timeout),
		logger: log,
	}
}

// Name implements Adapter.
func (p *ProductHunt) Name() string { return models.SourceProductHunt }

type phResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node struct {
					Name      string `json:"name"`
					Tagline   string `json:"tagline"`
					URL       string `json:"url"`
					Website   string `json:"website"`
					Thumbnail struct {
						URL string `json:"url"`
					} `json:"thumbnail"`
					Topics struct {
						Edges []struct {
							Node struct {
								Name string `json:"name"`
								Slug string `json:"slug"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"topics"`
					VotesCount int `json:"votesCount"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
}

// Fetch implements Adapter. It queries the newest posts of the last 24 hours
// and keeps those with an AI topic or AI keyword.
func (p *ProductHunt) Fetch(ctx context.Context) ([]models.Candidate, error) {
	if p.token == "" {
		p.logger.Warn("Product Hunt token not configured, skipping source")
		return []models.Candidate{}, nil
	}

	yesterday := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	query := fmt.Sprintf(`query {
	  posts(order: NEWEST, first: 50, postedAfter: %q) {
	    edges {
	      node {
	        name
	        tagline
	        url
	        website
	        thumbnail { url }
	        topics { edges { node { name slug } } }
	        votesCount
	      }
	    }
	  }
	}`, yesterday)

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, productHuntURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product hunt fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product hunt api: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed phResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(parsed.Data.Posts.Edges))
	for _, edge := range parsed.Data.Posts.Edges {
		node := edge.Node

		hasAITopic := false
		topicNames := make([]string, 0, len(node.Topics.Edges))
		for _, topic := range node.Topics.Edges {
			topicNames = append(topicNames, topic.Node.Name)
			if _, ok := aiTopics[topic.Node.Slug]; ok {
				hasAITopic = true
			}
		}

		if !hasAITopic && !aiKeywords.MatchString(node.Name) && !aiKeywords.MatchString(node.Tagline) {
			continue
		}

		url := node.Website
		if url == "" {
			url = node.URL
		}

		candidates = append(candidates, models.Candidate{
			Name:        node.Name,
			URL:         url,
			Description: node.Tagline,
			LogoURL:     node.Thumbnail.URL,
			Source:      models.SourceProductHunt,
			SourceURL:   node.URL,
			Metadata: map[string]any{
				"votes":      node.VotesCount,
				"categories": topicNames,
			},
		})
	}

	candidates = capCandidates(candidates, p.cap)

	p.logger.Info("Product Hunt fetch complete",
		logger.Int("posts", len(parsed.Data.Posts.Edges)),
		logger.Int("ai_tools", len(candidates)),
	)

	return candidates, nil
}
