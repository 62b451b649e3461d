package enrich

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/aitoolsdaily/collector/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(models.Candidate{
		Name:        "Suno",
		URL:         "https://suno.com",
		Description: "Music generation",
		Source:      models.SourceTAAFT,
		Metadata:    map[string]any{"votes": 42},
	})

	assert.Contains(t, prompt, "Tool name: Suno")
	assert.Contains(t, prompt, "Website: https://suno.com")
	assert.Contains(t, prompt, "Description: Music generation")
	assert.Contains(t, prompt, "Upvotes: 42")
}

func TestBuildPrompt_LongDescriptionTruncated(t *testing.T) {
	long := strings.Repeat("음악 생성 도구. ", 200)
	prompt := buildPrompt(models.Candidate{
		Name:        "Suno",
		URL:         "https://suno.com",
		Description: long,
	})

	start := strings.Index(prompt, "Description: ")
	assert.True(t, start >= 0)
	desc := prompt[start+len("Description: "):]
	desc = desc[:strings.Index(desc, "\n")]

	assert.True(t, utf8.ValidString(desc))
	assert.LessOrEqual(t, utf8.RuneCountInString(desc), maxPromptDescription)
}

func TestBuildPrompt_OmitsEmptyDescription(t *testing.T) {
	prompt := buildPrompt(models.Candidate{Name: "Bare", URL: "https://bare.example.com"})
	assert.NotContains(t, prompt, "Description:")
}
