package enrich

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aitoolsdaily/collector/internal/models"
)

const (
	minScore     = 1.0
	maxScore     = 5.0
	defaultScore = 3.0
	maxTags      = 5
)

// classification is the JSON shape the model is asked to produce.
type classification struct {
	Summary       string `json:"summary"`
	Category      string `json:"category"`
	Tags          []any  `json:"tags"`
	Pricing       string `json:"pricing"`
	PricingDetail string `json:"pricing_detail"`
	Score         any    `json:"score"`
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSON   = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseClassification extracts the JSON object from a model response. The
// model is told to emit bare JSON but sometimes wraps it in a code fence or
// surrounds it with prose, so both forms are accepted.
func parseClassification(text string) (classification, error) {
	raw := ""
	if m := fencedJSON.FindStringSubmatch(text); len(m) > 1 {
		raw = m[1]
	} else if m := bareJSON.FindString(text); m != "" {
		raw = m
	}
	if raw == "" {
		return classification{}, fmt.Errorf("no JSON object in response")
	}

	var parsed classification
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return classification{}, fmt.Errorf("unmarshal classification: %w", err)
	}
	return parsed, nil
}

// applyClassification validates every field of a parsed classification and
// coerces anything out of range to its safe default.
func applyClassification(candidate models.Candidate, parsed classification) models.EnrichedCandidate {
	enriched := models.EnrichedCandidate{
		Candidate:     candidate,
		Summary:       strings.TrimSpace(parsed.Summary),
		CategorySlug:  strings.ToLower(strings.TrimSpace(parsed.Category)),
		Tags:          coerceTags(parsed.Tags),
		PricingType:   strings.ToLower(strings.TrimSpace(parsed.Pricing)),
		PricingDetail: strings.TrimSpace(parsed.PricingDetail),
		Score:         coerceScore(parsed.Score),
	}

	if !models.ValidCategorySlug(enriched.CategorySlug) {
		enriched.CategorySlug = models.CategoryOther
	}
	if !models.ValidPricingType(enriched.PricingType) {
		enriched.PricingType = models.PricingFree
	}
	if utf8.RuneCountInString(enriched.Summary) <= 10 {
		enriched.Summary = fallbackSummary(candidate)
	}

	return enriched
}

// buildFallback enriches a candidate with conservative defaults after
// classification fails.
func buildFallback(candidate models.Candidate) models.EnrichedCandidate {
	return models.EnrichedCandidate{
		Candidate:    candidate,
		Summary:      fallbackSummary(candidate),
		CategorySlug: models.CategoryOther,
		Tags:         []string{"ai", "new"},
		PricingType:  models.PricingFree,
		Score:        defaultScore,
	}
}

// fallbackSummary derives a deterministic summary when none is available.
func fallbackSummary(candidate models.Candidate) string {
	if desc := strings.TrimSpace(candidate.Description); utf8.RuneCountInString(desc) > 10 {
		if runes := []rune(desc); len(runes) > 200 {
			desc = strings.TrimSpace(string(runes[:200]))
		}
		return desc
	}
	return fmt.Sprintf("%s - 새롭게 발견된 AI 도구입니다.", candidate.Name)
}

// coerceScore clamps the usefulness score to [1.0, 5.0], rounded to one
// decimal. Missing or non-numeric scores become the neutral default.
func coerceScore(raw any) float64 {
	score, ok := raw.(float64)
	if !ok {
		return defaultScore
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return defaultScore
	}
	score = math.Min(maxScore, math.Max(minScore, score))
	return math.Round(score*10) / 10
}

// coerceTags keeps only string tags, trimmed and capped at five.
func coerceTags(raw []any) []string {
	tags := make([]string, 0, maxTags)
	for _, entry := range raw {
		tag, ok := entry.(string)
		if !ok {
			continue
		}
		tag = strings.TrimSpace(strings.ToLower(tag))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	if len(tags) == 0 {
		tags = []string{"ai"}
	}
	return tags
}
