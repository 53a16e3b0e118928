package fetch

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minLineChars      = 20
	shortLineChars    = 80 // metadata checks only apply below this
	titleLineMaxChars = 120
	titleSlugWords    = 4
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// Short lines that open like a byline ("By Jane Doe") or a taxonomy label. A label
	// ends at a colon or whitespace, so "Follow-up" and "By 2030" stay prose.
	metaPrefixRegex = regexp.MustCompile(`^(?i:by|written by|posted by)\s+\p{Lu}|^(?i:author|posted|published|updated|category|categories|filed under|tags?|share|follow)(:|\s|$)`)

	// Date-like tokens: 12/03/2024, 2024-03-12, March 12, 2024, 12 March 2024.
	dateRegex = regexp.MustCompile(`(?i)(\b\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4}\b|\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(st|nd|rd|th)?,?\s+\d{4}\b|\b\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?,?\s+\d{4}\b)`)

	// Engagement counters and taxonomy noise.
	metaKeywordRegex = regexp.MustCompile(`(?i)(uncategorized|reading time|\bmin(ute)?s? read\b|\b\d[\d,.]*k?\s+(comments?|views?|likes?)\b|\b(no|leave a|add a)\s+comments?\b|^(comments?|views?|likes?)\b)`)

	slugRegex = regexp.MustCompile(`[^a-z0-9]+`)
)

// filterReadableLines removes lines that are too short, look like metadata,
// carry no letters, or repeat the page title already present in the URL.
func filterReadableLines(text string, pageURL *url.URL) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = collapseSpaces(line)
		if utf8.RuneCountInString(line) < minLineChars {
			continue
		}
		if isMetadataLine(line) || isSymbolsOnly(line) {
			continue
		}
		kept = append(kept, line)
	}

	if len(kept) > 0 && isDuplicatedTitle(kept[0], pageURL) {
		kept = kept[1:]
	}

	return strings.Join(kept, "\n\n")
}

func isMetadataLine(line string) bool {
	if utf8.RuneCountInString(line) >= shortLineChars {
		return false
	}
	return metaPrefixRegex.MatchString(line) || dateRegex.MatchString(line) || metaKeywordRegex.MatchString(line)
}

// isSymbolsOnly reports whether s has no letters at all.
func isSymbolsOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// isDuplicatedTitle reports whether a short first line is the page title, detected
// by its leading words appearing as a slug in the URL path.
func isDuplicatedTitle(line string, pageURL *url.URL) bool {
	if pageURL == nil || utf8.RuneCountInString(line) > titleLineMaxChars {
		return false
	}
	slug := leadingSlug(line, titleSlugWords)
	if len(slug) < 8 {
		return false
	}
	return strings.Contains(strings.ToLower(pageURL.Path), slug)
}

func leadingSlug(line string, words int) string {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) > words {
		fields = fields[:words]
	}
	slug := slugRegex.ReplaceAllString(strings.Join(fields, " "), "-")
	return strings.Trim(slug, "-")
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
