// Package dedup removes duplicate candidates using normalized-URL equality
// and fuzzy name matching against both the in-flight batch and a bounded
// window of previously persisted tools.
package dedup

import (
	"net/url"
	"regexp"
	"strings"
)

// Query parameters stripped during URL normalization. These carry tracking
// state, not identity.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term",
	"ref", "source", "via", "from",
}

var (
	schemePrefix   = regexp.MustCompile(`^https?://`)
	wwwPrefix      = regexp.MustCompile(`^www\.`)
	trailingSlash  = regexp.MustCompile(`/+$`)
	nameSeparators = regexp.MustCompile(`[.\-_]`)
	nameStopWords  = regexp.MustCompile(`\b(ai|app|tool|io|co|the|by)\b`)
	nameDisallowed = regexp.MustCompile(`[^a-z0-9가-힣\s]`)
	nameWhitespace = regexp.MustCompile(`\s+`)
)

// NormalizeURL converts a URL into a canonical comparison key:
// host (lowercased, no www.) + path (lowercased, no trailing slash) +
// remaining query, with tracking parameters removed. Malformed input falls
// back to plain string stripping. Idempotent: normalizing an already
// normalized value returns it unchanged.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !strings.HasPrefix(u.Scheme, "http") {
		return fallbackNormalize(raw)
	}

	host := strings.ToLower(u.Hostname())
	host = wwwPrefix.ReplaceAllString(host, "")

	path := strings.ToLower(trailingSlash.ReplaceAllString(u.Path, ""))

	params := u.Query()
	for _, key := range trackingParams {
		params.Del(key)
	}

	normalized := host + path
	if query := params.Encode(); query != "" {
		normalized += "?" + query
	}
	return normalized
}

// fallbackNormalize strips scheme, www. and trailing slashes without parsing.
// The query part is left untouched so the result round-trips through
// NormalizeURL unchanged.
func fallbackNormalize(raw string) string {
	raw = schemePrefix.ReplaceAllString(raw, "")
	raw = wwwPrefix.ReplaceAllString(raw, "")
	raw = trailingSlash.ReplaceAllString(raw, "")

	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return strings.ToLower(raw[:i]) + raw[i:]
	}
	return strings.ToLower(raw)
}

// NormalizeName reduces a tool name to a comparison form: lowercased,
// separators unified to spaces, a small stop-word set removed, anything
// outside Latin alphanumerics and Hangul dropped, whitespace collapsed.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = nameSeparators.ReplaceAllString(name, " ")
	name = nameStopWords.ReplaceAllString(name, "")
	name = nameDisallowed.ReplaceAllString(name, "")
	name = nameWhitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
