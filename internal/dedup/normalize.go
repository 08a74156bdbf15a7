package dedup

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const terminalPunctuation = ".,;:!?"

var (
	leadingArticles  = []string{"the ", "a ", "an "}
	trailingArticles = []string{", the", ", a", ", an"}
	authorSuffixes   = []string{" jr", " sr", " ii", " iii", " iv"}
)

// NormalizeTitle returns the comparison form of a title
func NormalizeTitle(title string) string {
	return fixedPoint(title, normalizeTitleOnce)
}

// NormalizeAuthor returns the comparison form of an author name
func NormalizeAuthor(author string) string {
	return fixedPoint(author, normalizeAuthorOnce)
}

// fixedPoint applies fn until the value stops changing so that normalizing a
// normalized value is a no-op.
func fixedPoint(value string, fn func(string) string) string {
	current := fn(value)
	for {
		next := fn(current)
		if next == current {
			return current
		}
		current = next
	}
}

func normalizeTitleOnce(title string) string {
	s := normalizeCommon(title)
	for _, article := range trailingArticles {
		if strings.HasSuffix(s, article) {
			s = normalizeCommon(strings.TrimSuffix(s, article))
			break
		}
	}
	for _, article := range leadingArticles {
		if strings.HasPrefix(s, article) {
			s = strings.TrimSpace(strings.TrimPrefix(s, article))
			break
		}
	}
	return s
}

func normalizeAuthorOnce(author string) string {
	s := normalizeCommon(author)
	for _, suffix := range authorSuffixes {
		if strings.HasSuffix(s, suffix) {
			s = normalizeCommon(strings.TrimSuffix(s, suffix))
			break
		}
	}
	return s
}

// Casers are stateful, so each call builds its own.
func normalizeCommon(value string) string {
	s := cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(value)))
	s = strings.TrimRight(s, terminalPunctuation)
	return strings.Join(strings.Fields(s), " ")
}
