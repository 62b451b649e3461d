package enrich

import (
	"fmt"
	"strings"

	"github.com/aitoolsdaily/collector/internal/models"
)

const systemPrompt = `You are an analyst for a daily AI tools digest aimed at Korean readers.
Given one AI tool, respond with a single JSON object and nothing else:

{
  "summary": "one Korean sentence describing what the tool does and who it is for",
  "category": "one of: ` + categoryList + `",
  "tags": ["up to 5 short lowercase English tags"],
  "pricing": "one of: free, freemium, paid, contact",
  "score": 3.5
}

score is a usefulness rating from 1.0 to 5.0. Base it on how novel and
broadly useful the tool appears. If information is missing, make a
conservative guess rather than omitting a field.`

const categoryList = "image-generation, text-generation, coding, " +
	"video-generation, audio, document, marketing, data-analysis, design, " +
	"productivity, search-research, chatbot, education, other"

// maxPromptDescription caps how much scraped description ends up in the
// user message. Feed bodies can run to whole articles.
const maxPromptDescription = 500

// buildPrompt renders the per-tool user message.
func buildPrompt(candidate models.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tool name: %s\n", candidate.Name)
	fmt.Fprintf(&b, "Website: %s\n", candidate.URL)
	if desc := candidate.Description; desc != "" {
		if runes := []rune(desc); len(runes) > maxPromptDescription {
			desc = strings.TrimSpace(string(runes[:maxPromptDescription]))
		}
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	fmt.Fprintf(&b, "Discovered via: %s\n", candidate.Source)
	if votes, ok := candidate.Metadata["votes"]; ok {
		fmt.Fprintf(&b, "Upvotes: %v\n", votes)
	}
	if cats, ok := candidate.Metadata["categories"]; ok {
		fmt.Fprintf(&b, "Listed categories: %v\n", cats)
	}
	return b.String()
}
