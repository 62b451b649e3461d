package sources

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

// rssRecencyWindow drops feed entries older than two days; tool feeds
// republish their archive on every poll and only fresh items matter.
const rssRecencyWindow = 48 * time.Hour

var (
	rssItem   = regexp.MustCompile(`(?s)<item[\s>].*?</item>|<item>.*?</item>`)
	atomEntry = regexp.MustCompile(`(?s)<entry[\s>].*?</entry>|<entry>.*?</entry>`)

	titleTag   = regexp.MustCompile(`(?s)<title[^>]*>(.*?)</title>`)
	linkTag    = regexp.MustCompile(`(?s)<link[^>]*>(.*?)</link>`)
	atomLink   = regexp.MustCompile(`<link[^>]*href="([^"]+)"`)
	descTag    = regexp.MustCompile(`(?s)<description[^>]*>(.*?)</description>`)
	summaryTag = regexp.MustCompile(`(?s)<summary[^>]*>(.*?)</summary>`)
	pubDateTag = regexp.MustCompile(`(?s)<pubDate[^>]*>(.*?)</pubDate>`)
	updatedTag = regexp.MustCompile(`(?s)<(?:updated|published)[^>]*>(.*?)</(?:updated|published)>`)

	cdataWrap = regexp.MustCompile(`(?s)^\s*<!\[CDATA\[(.*?)\]\]>\s*$`)
	htmlTag   = regexp.MustCompile(`<[^>]+>`)
)

// feedDateLayouts are tried in order when parsing item timestamps. Feeds in
// the wild emit a mix of RFC 1123, RFC 822 and ISO 8601 variants.
var feedDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// RSS polls a set of news feeds and keeps AI-related items from the last
// two days. Feeds are fetched concurrently and fail independently.
type RSS struct {
	feeds  []config.Feed
	cap    int
	client *http.Client
	logger logger.Logger
}

// NewRSS creates the RSS adapter.
func NewRSS(feeds []config.Feed, limit int, timeout time.Duration, log logger.Logger) *RSS {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &RSS{
		feeds:  feeds,
		cap:    limit,
		client: newHTTPClient(timeout),
		logger: log,
	}
}

// Name implements Adapter.
func (r *RSS) Name() string { return models.SourceRSS }

// Fetch implements Adapter. A feed that fails to fetch or parse is logged
// and skipped; the remaining feeds still contribute.
func (r *RSS) Fetch(ctx context.Context) ([]models.Candidate, error) {
	results := make([][]models.Candidate, len(r.feeds))

	var wg sync.WaitGroup
	for i, feed := range r.feeds {
		wg.Add(1)
		go func(i int, feed config.Feed) {
			defer wg.Done()

			body, err := fetchHTML(ctx, r.client, feed.URL)
			if err != nil {
				r.logger.Warn("RSS feed fetch failed",
					logger.String("feed", feed.Name),
					logger.Error(err),
				)
				return
			}
			results[i] = r.parseFeed(feed.Name, string(body))
		}(i, feed)
	}
	wg.Wait()

	var candidates []models.Candidate
	for _, items := range results {
		candidates = append(candidates, items...)
	}
	candidates = capCandidates(candidates, r.cap)

	r.logger.Info("RSS fetch complete",
		logger.Int("feeds", len(r.feeds)),
		logger.Int("count", len(candidates)),
	)
	return candidates, nil
}

// parseFeed extracts recent AI-related items from RSS or Atom XML. The
// extraction is regex based on purpose: real feeds are frequently invalid
// XML (unescaped entities, raw HTML) and a strict decoder rejects them.
func (r *RSS) parseFeed(feedName, body string) []models.Candidate {
	blocks := rssItem.FindAllString(body, -1)
	atom := false
	if len(blocks) == 0 {
		blocks = atomEntry.FindAllString(body, -1)
		atom = true
	}

	cutoff := time.Now().Add(-rssRecencyWindow)

	var candidates []models.Candidate
	for _, block := range blocks {
		title := cleanFeedText(firstMatch(titleTag, block))
		if title == "" {
			continue
		}

		link := ""
		if atom {
			link = firstMatch(atomLink, block)
		}
		if link == "" {
			link = cleanFeedText(firstMatch(linkTag, block))
		}
		if link == "" {
			continue
		}

		rawDate := firstMatch(pubDateTag, block)
		if rawDate == "" {
			rawDate = firstMatch(updatedTag, block)
		}
		published, ok := parseFeedDate(cleanFeedText(rawDate))
		if ok && published.Before(cutoff) {
			continue
		}

		if !aiKeywords.MatchString(title) {
			continue
		}

		desc := cleanFeedText(firstMatch(descTag, block))
		if desc == "" {
			desc = cleanFeedText(firstMatch(summaryTag, block))
		}

		name := title
		if runes := []rune(name); len(runes) > 100 {
			name = strings.TrimSpace(string(runes[:100]))
		}

		candidates = append(candidates, models.Candidate{
			Name:        name,
			URL:         link,
			Description: desc,
			Source:      models.SourceRSS,
			SourceURL:   link,
			Metadata: map[string]any{
				"feed_name": feedName,
				"pub_date":  cleanFeedText(rawDate),
			},
		})
	}

	return candidates
}

func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// cleanFeedText unwraps CDATA, strips embedded markup and decodes the
// entities feeds commonly emit.
func cleanFeedText(text string) string {
	if m := cdataWrap.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}
	text = htmlTag.ReplaceAllString(text, "")
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
	)
	return strings.TrimSpace(replacer.Replace(text))
}

// parseFeedDate parses a feed timestamp. An unparseable or missing date
// returns ok=false and the item is treated as recent.
func parseFeedDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
