// Package dedup consolidates book candidates detected by several providers.
package dedup

import (
	"strings"
	"unicode/utf8"

	"github.com/shelfscan/shelfscan/internal/models"
)

// minContainedTitle is the rune count a normalized title must exceed before it
// can take part in containment matching.
const minContainedTitle = 3

var placeholderAuthors = map[string]bool{
	"unknown":        true,
	"unknown author": true,
}

type entry struct {
	candidate models.BookCandidate
	title     string
	author    string
}

// Merge removes exact and near-duplicate candidates. Order matters: the first
// occurrence of a book wins, so the primary provider's output must come first.
// Merge is deterministic and Merge(Merge(xs)) equals Merge(xs).
func Merge(candidates []models.BookCandidate) []models.BookCandidate {
	unique := exactPass(candidates)

	accepted := make([]entry, 0, len(unique))
	for _, e := range unique {
		if nearDuplicateOfAny(e, accepted) {
			continue
		}
		accepted = append(accepted, e)
	}

	merged := make([]models.BookCandidate, 0, len(accepted))
	for _, e := range accepted {
		merged = append(merged, e.candidate)
	}
	return merged
}

// Key returns the exact-match key of a candidate
func Key(c models.BookCandidate) string {
	return NormalizeTitle(c.Title) + "|" + NormalizeAuthor(c.Author)
}

func exactPass(candidates []models.BookCandidate) []entry {
	seen := make(map[string]bool, len(candidates))
	unique := make([]entry, 0, len(candidates))
	for _, c := range candidates {
		e := entry{
			candidate: c,
			title:     NormalizeTitle(c.Title),
			author:    NormalizeAuthor(c.Author),
		}
		key := e.title + "|" + e.author
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, e)
	}
	return unique
}

func nearDuplicateOfAny(e entry, accepted []entry) bool {
	for _, a := range accepted {
		if nearDuplicate(e, a) {
			return true
		}
	}
	return false
}

func nearDuplicate(a, b entry) bool {
	if !sameAuthor(a.author, b.author) {
		return false
	}
	if utf8.RuneCountInString(a.title) <= minContainedTitle || utf8.RuneCountInString(b.title) <= minContainedTitle {
		return false
	}
	return strings.Contains(a.title, b.title) || strings.Contains(b.title, a.title)
}

// sameAuthor compares normalized authors. A bare surname also matches a full
// name ending in that surname.
func sameAuthor(a, b string) bool {
	if !knownAuthor(a) || !knownAuthor(b) {
		return false
	}
	if a == b {
		return true
	}
	aFields, bFields := strings.Fields(a), strings.Fields(b)
	switch {
	case len(aFields) == 1 && len(bFields) > 1:
		return aFields[0] == bFields[len(bFields)-1]
	case len(bFields) == 1 && len(aFields) > 1:
		return bFields[0] == aFields[len(aFields)-1]
	}
	return false
}

func knownAuthor(author string) bool {
	return author != "" && !placeholderAuthors[author]
}
