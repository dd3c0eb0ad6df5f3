package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.AmericanEnglish, cases.NoLower)

// CleanTitle normalizes a display title from an archive API record: trims
// whitespace, strips a trailing period, and title-cases all-caps or
// all-lowercase records. Mixed-case titles are left alone since the
// archive got those right.
func CleanTitle(title string) string {
	title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), "."))
	if title == "" {
		return title
	}
	if title == strings.ToUpper(title) || title == strings.ToLower(title) {
		return titleCaser.String(strings.ToLower(title))
	}
	return title
}

// JoinPlace combines city and state fragments into a single display string.
func JoinPlace(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "Unknown"
	}
	return strings.Join(kept, ", ")
}

// Truncate shortens s to at most max runes, appending an ellipsis when
// truncation occurred.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return string(runes[:1])
	}
	return string(runes[:max-1]) + "…"
}
