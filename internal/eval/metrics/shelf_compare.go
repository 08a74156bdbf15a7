package metrics

import (
	"fmt"
	"strings"

	"github.com/shelfscan/shelfscan/internal/dedup"
	"github.com/shelfscan/shelfscan/internal/eval/dataset"
	"github.com/shelfscan/shelfscan/internal/models"
)

// MatchThreshold is the minimum title score counted as a found book
const MatchThreshold = 0.8

// ShelfComparison scores one scan against the ground truth for its shelf
type ShelfComparison struct {
	Expected  int
	Found     int
	Matched   int
	Precision float64
	Recall    float64
	F1        float64

	Matches []BookMatch
	// Missing are expected titles no scanned book matched
	Missing []string
	// Extra are scanned titles that matched nothing expected
	Extra []string
}

// BookMatch pairs an expected book with the scanned book credited for it
type BookMatch struct {
	Title       FieldMatch
	Author      FieldMatch
	AuthorAgree bool
}

// FieldMatch represents the comparison result for a single field
type FieldMatch struct {
	Expected string
	Actual   string
	Score    float64 // 0.0 to 1.0
	Method   string  // "exact", "substring", "fuzzy_high", "fuzzy_medium", "no_match", or a *_missing variant
	Notes    string
}

// CompareShelf greedily pairs every expected book with its best unused scanned
// book and derives precision and recall from the pairs.
func CompareShelf(expected []dataset.ExpectedBook, found []models.ValidatedBook) *ShelfComparison {
	cmp := &ShelfComparison{
		Expected: len(expected),
		Found:    len(found),
	}

	used := make([]bool, len(found))
	for _, want := range expected {
		best, bestIdx := FieldMatch{}, -1
		for i, got := range found {
			if used[i] {
				continue
			}
			m := compareField(dedup.NormalizeTitle(want.Title), dedup.NormalizeTitle(got.Title))
			if m.Score > best.Score {
				best, bestIdx = m, i
			}
		}

		if bestIdx < 0 || best.Score < MatchThreshold {
			cmp.Missing = append(cmp.Missing, want.Title)
			continue
		}

		used[bestIdx] = true
		best.Expected, best.Actual = want.Title, found[bestIdx].Title
		author := compareField(dedup.NormalizeAuthor(want.Author), dedup.NormalizeAuthor(found[bestIdx].Author))
		author.Expected, author.Actual = want.Author, found[bestIdx].Author
		cmp.Matches = append(cmp.Matches, BookMatch{
			Title:       best,
			Author:      author,
			AuthorAgree: author.Score >= MatchThreshold,
		})
		cmp.Matched++
	}

	for i, got := range found {
		if !used[i] {
			cmp.Extra = append(cmp.Extra, got.Title)
		}
	}

	if cmp.Found > 0 {
		cmp.Precision = float64(cmp.Matched) / float64(cmp.Found)
	}
	if cmp.Expected > 0 {
		cmp.Recall = float64(cmp.Matched) / float64(cmp.Expected)
	}
	if cmp.Precision+cmp.Recall > 0 {
		cmp.F1 = 2 * cmp.Precision * cmp.Recall / (cmp.Precision + cmp.Recall)
	}
	return cmp
}

// compareField scores two already-normalized values
func compareField(expected, actual string) FieldMatch {
	match := FieldMatch{
		Expected: expected,
		Actual:   actual,
	}

	if expected == "" && actual == "" {
		match.Score = 0.5
		match.Method = "both_missing"
		return match
	}
	if expected == "" {
		match.Method = "expected_missing"
		return match
	}
	if actual == "" {
		match.Method = "actual_missing"
		return match
	}

	if expected == actual {
		match.Score = 1.0
		match.Method = "exact"
		return match
	}

	if strings.Contains(actual, expected) || strings.Contains(expected, actual) {
		match.Score = 0.8
		match.Method = "substring"
		return match
	}

	similarity := calculateSimilarity(expected, actual)
	match.Score = similarity
	switch {
	case similarity > 0.7:
		match.Method = "fuzzy_high"
	case similarity > 0.4:
		match.Method = "fuzzy_medium"
	default:
		match.Method = "no_match"
	}
	match.Notes = fmt.Sprintf("similarity %.2f", similarity)
	return match
}

// calculateSimilarity calculates similarity ratio (0.0 to 1.0) using Levenshtein distance
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	distance := levenshteinDistance(r1, r2)
	return 1.0 - float64(distance)/float64(max(len(r1), len(r2)))
}

// levenshteinDistance uses two rolling rows
func levenshteinDistance(s1, s2 []rune) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
