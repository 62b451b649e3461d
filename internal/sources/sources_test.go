package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()

	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestRunStrategies_FirstNonEmptyWins(t *testing.T) {
	second := false
	strategies := []htmlStrategy{
		{name: "empty", extract: func(*goquery.Document) []models.Candidate { return nil }},
		{name: "hit", extract: func(*goquery.Document) []models.Candidate {
			return []models.Candidate{{Name: "Tool"}}
		}},
		{name: "never", extract: func(*goquery.Document) []models.Candidate {
			second = true
			return nil
		}},
	}

	result := runStrategies(strategies, doc(t, "<html></html>"), logger.NewNopLogger())
	assert.Len(t, result, 1)
	assert.False(t, second, "later strategies must not run after a hit")
}

func TestRunStrategies_AllEmpty(t *testing.T) {
	strategies := []htmlStrategy{
		{name: "empty", extract: func(*goquery.Document) []models.Candidate { return nil }},
	}

	result := runStrategies(strategies, doc(t, "<html></html>"), logger.NewNopLogger())
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestCapCandidates(t *testing.T) {
	candidates := make([]models.Candidate, 50)
	assert.Len(t, capCandidates(candidates, 30), 30)
	assert.Len(t, capCandidates(candidates[:10], 30), 10)
	assert.Len(t, capCandidates(candidates, 0), 50)
}

func TestProductHunt_NoTokenSkips(t *testing.T) {
	adapter := NewProductHunt("", 0, time.Second, logger.NewNopLogger())

	candidates, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestTAAFT_ExtractJSONLD(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{"@type":"ItemList","itemListElement":[
		{"item":{"name":"Suno","url":"https://suno.com","description":"Music generation","image":"https://cdn.example.com/suno.png"}},
		{"item":{"name":"NoURL"}},
		{"item":{"name":"Local","url":"/ai/local-tool/"}}
	]}
	</script>
	</head><body></body></html>`

	adapter := NewTAAFT(0, time.Second, logger.NewNopLogger())
	candidates := adapter.extractJSONLD(doc(t, html))

	require.Len(t, candidates, 2)
	assert.Equal(t, "Suno", candidates[0].Name)
	assert.Equal(t, "https://suno.com", candidates[0].URL)
	assert.Equal(t, models.SourceTAAFT, candidates[0].Source)
	// Relative URLs resolve against the site.
	assert.Equal(t, taaftBase+"/ai/local-tool/", candidates[1].URL)
}

func TestTAAFT_ExtractCards(t *testing.T) {
	html := `<html><body>
	<a href="/ai/suno/"><h3>Suno</h3><p>Music generation</p><img src="/img/suno.png"></a>
	<a href="/ai/suno/"><h3>Suno</h3></a>
	<a href="/ai/x/"><h3>X</h3></a>
	<a href="/other/page"><h3>Not a tool</h3></a>
	</body></html>`

	adapter := NewTAAFT(0, time.Second, logger.NewNopLogger())
	candidates := adapter.extractCards(doc(t, html))

	// Duplicate hrefs collapse; one-char names and non-tool links drop.
	require.Len(t, candidates, 1)
	assert.Equal(t, "Suno", candidates[0].Name)
	assert.Equal(t, "Music generation", candidates[0].Description)
}

func TestFuturepedia_ExtractNextData(t *testing.T) {
	nextData := `{"props":{"pageProps":{"initialTools":[
		{"toolName":"Luma","toolUrl":"https://lumalabs.ai","toolShortDescription":"Video generation","slug":"luma"},
		{"name":"Fallback Fields","websiteUrl":"https://fallback.example.com","description":"Uses alternate keys"},
		{"toolName":"NoURL"}
	]}}}`
	html := fmt.Sprintf(
		`<html><body><script id="__NEXT_DATA__" type="application/json">%s</script></body></html>`,
		nextData,
	)

	adapter := NewFuturepedia(0, time.Second, logger.NewNopLogger())
	candidates := adapter.extractNextData(doc(t, html))

	require.Len(t, candidates, 2)
	assert.Equal(t, "Luma", candidates[0].Name)
	assert.Equal(t, "https://lumalabs.ai", candidates[0].URL)
	assert.Equal(t, "Video generation", candidates[0].Description)
	assert.Equal(t, futurepediaBase+"/tool/luma", candidates[0].SourceURL)

	// Field probes fall through to the alternate key names.
	assert.Equal(t, "Fallback Fields", candidates[1].Name)
	assert.Equal(t, "https://fallback.example.com", candidates[1].URL)
}

func TestFuturepedia_ProbeToolList(t *testing.T) {
	assert.Len(t, probeToolList(map[string]any{"tools": []any{1, 2}}), 2)
	assert.Len(t, probeToolList(map[string]any{"aiTools": []any{1}}), 1)
	assert.Len(t, probeToolList(map[string]any{"data": map[string]any{"tools": []any{1, 2, 3}}}), 3)
	assert.Nil(t, probeToolList(map[string]any{"unrelated": "x"}))
}

func TestFirstString(t *testing.T) {
	entry := map[string]any{"a": "", "b": 7, "c": "hit", "d": "later"}
	assert.Equal(t, "hit", firstString(entry, "a", "b", "c", "d"))
	assert.Equal(t, "", firstString(entry, "a", "b", "missing"))
}

func TestTAAFT_FetchUsesStrategies(t *testing.T) {
	html := `<html><body>
	<a href="/ai/suno/"><h3>Suno</h3><p>Music generation</p></a>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(html))
	}))
	defer server.Close()

	adapter := NewTAAFT(0, time.Second, logger.NewNopLogger())
	adapter.url = server.URL

	candidates, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Suno", candidates[0].Name)
}

// The configured per-source cap bounds Fetch output.
func TestTAAFT_FetchHonorsConfiguredCap(t *testing.T) {
	html := `<html><body>
	<a href="/ai/suno/"><h3>Suno</h3></a>
	<a href="/ai/cursor/"><h3>Cursor</h3></a>
	<a href="/ai/luma/"><h3>Luma</h3></a>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(html))
	}))
	defer server.Close()

	adapter := NewTAAFT(2, time.Second, logger.NewNopLogger())
	adapter.url = server.URL

	candidates, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestTAAFT_FetchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewTAAFT(0, time.Second, logger.NewNopLogger())
	adapter.url = server.URL

	_, err := adapter.Fetch(context.Background())
	assert.Error(t, err)
}
