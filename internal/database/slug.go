package database

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

const maxSlugLength = 80

// Slugify derives a URL-safe slug from a tool name. Latin letters are
// lowercased, Hangul syllables pass through, every other run of characters
// collapses to a single hyphen. Truncated to 80 characters.
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false

	for _, r := range strings.ToLower(name) {
		keep := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || unicode.Is(unicode.Hangul, r)
		if keep {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}

	slug := b.String()
	if runes := []rune(slug); len(runes) > maxSlugLength {
		slug = strings.TrimRight(string(runes[:maxSlugLength]), "-")
	}
	return slug
}

// UniqueSlug appends a base-36 timestamp token to the base slug so inserts
// never need a pre-check round trip to avoid collisions.
func UniqueSlug(name string, now time.Time) string {
	suffix := strconv.FormatInt(now.UnixMilli(), 36)
	base := Slugify(name)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
