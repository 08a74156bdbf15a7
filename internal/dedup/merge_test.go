package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscan/shelfscan/internal/models"
)

func book(title, author string, confidence models.Confidence) models.BookCandidate {
	return models.BookCandidate{Title: title, Author: author, Confidence: confidence}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The Great Gatsby", "great gatsby"},
		{"  Great   Gatsby, The  ", "great gatsby"},
		{"A Tale of Two Cities.", "tale of two cities"},
		{"An Introduction to Algorithms!?", "introduction to algorithms"},
		{"Theology", "theology"},
		{"ÉMILE", "émile"},
		{"", ""},
		{"A", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTitle(tt.input))
		})
	}
}

func TestNormalizeAuthor(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Martin Luther King, Jr.", "martin luther king"},
		{"Kurt Vonnegut  JR", "kurt vonnegut"},
		{"Henry VIII", "henry viii"},
		{"Richard III", "richard"},
		{"F. Scott Fitzgerald", "f. scott fitzgerald"},
		{"Unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAuthor(tt.input))
		})
	}
}

func TestNormalizationIsStable(t *testing.T) {
	inputs := []string{
		"The Great Gatsby",
		"Great Gatsby, The",
		"The The Book",
		"A an the.",
		"Sammy Davis Jr. Jr.",
		"  The   Lord of the Rings;  ",
		"John Smith, III, Jr",
	}

	for _, input := range inputs {
		title := NormalizeTitle(input)
		assert.Equal(t, title, NormalizeTitle(title), "title %q", input)

		author := NormalizeAuthor(input)
		assert.Equal(t, author, NormalizeAuthor(author), "author %q", input)
	}
}

func TestMergeGatsbyContainment(t *testing.T) {
	merged := Merge([]models.BookCandidate{
		book("The Great Gatsby", "F. Scott Fitzgerald", models.ConfidenceHigh),
		book("Great Gatsby, The", "fitzgerald", models.ConfidenceMedium),
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "The Great Gatsby", merged[0].Title)
}

func TestMergeFirstSeenWins(t *testing.T) {
	merged := Merge([]models.BookCandidate{
		book("Dune", "Frank Herbert", models.ConfidenceLow),
		book("dune.", "FRANK HERBERT", models.ConfidenceHigh),
	})

	require.Len(t, merged, 1)
	assert.Equal(t, models.ConfidenceLow, merged[0].Confidence)
	assert.Equal(t, "Dune", merged[0].Title)
}

func TestMergeNearDuplicates(t *testing.T) {
	tests := []struct {
		name     string
		input    []models.BookCandidate
		expected []string
	}{
		{
			name: "subtitle truncation merges",
			input: []models.BookCandidate{
				book("Dragonfly in Amber", "Diana Gabaldon", models.ConfidenceHigh),
				book("Dragonfly in Amber: A Novel", "Diana Gabaldon", models.ConfidenceHigh),
			},
			expected: []string{"Dragonfly in Amber"},
		},
		{
			name: "different authors kept",
			input: []models.BookCandidate{
				book("Emma", "Jane Austen", models.ConfidenceHigh),
				book("Emma Returns", "Someone Else", models.ConfidenceHigh),
			},
			expected: []string{"Emma", "Emma Returns"},
		},
		{
			name: "short multibyte title never merges",
			input: []models.BookCandidate{
				book("三体", "刘慈欣", models.ConfidenceHigh),
				book("三体II", "刘慈欣", models.ConfidenceHigh),
			},
			expected: []string{"三体", "三体II"},
		},
		{
			name: "long multibyte titles merge",
			input: []models.BookCandidate{
				book("三体：地球往事", "刘慈欣", models.ConfidenceHigh),
				book("三体：地球往事 第一部", "刘慈欣", models.ConfidenceHigh),
			},
			expected: []string{"三体：地球往事"},
		},
		{
			name: "placeholder author never merges",
			input: []models.BookCandidate{
				book("Cosmos", "Unknown", models.ConfidenceLow),
				book("Cosmos Explained", "unknown", models.ConfidenceLow),
			},
			expected: []string{"Cosmos", "Cosmos Explained"},
		},
		{
			name: "empty author never merges",
			input: []models.BookCandidate{
				book("Cosmos", "", models.ConfidenceLow),
				book("Cosmos Explained", "", models.ConfidenceLow),
			},
			expected: []string{"Cosmos", "Cosmos Explained"},
		},
		{
			name: "short titles are not contained",
			input: []models.BookCandidate{
				book("It", "Stephen King", models.ConfidenceHigh),
				book("It Ends", "Stephen King", models.ConfidenceHigh),
			},
			expected: []string{"It", "It Ends"},
		},
		{
			name: "same author over-merges shared substring",
			input: []models.BookCandidate{
				book("Sapiens", "Yuval Noah Harari", models.ConfidenceHigh),
				book("Homo Sapiens Deus", "Yuval Noah Harari", models.ConfidenceHigh),
			},
			expected: []string{"Sapiens"},
		},
		{
			name: "two different surnames do not match",
			input: []models.BookCandidate{
				book("Collected Poems", "Sylvia Plath", models.ConfidenceHigh),
				book("Collected Poems", "Ted Hughes", models.ConfidenceHigh),
			},
			expected: []string{"Collected Poems", "Collected Poems"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := Merge(tt.input)
			titles := make([]string, 0, len(merged))
			for _, c := range merged {
				titles = append(titles, c.Title)
			}
			assert.Equal(t, tt.expected, titles)
		})
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	inputs := [][]models.BookCandidate{
		nil,
		{
			book("Dune", "Frank Herbert", models.ConfidenceHigh),
			book("Dune Messiah", "Frank Herbert", models.ConfidenceHigh),
			book("Children of Dune", "Herbert", models.ConfidenceMedium),
			book("The Hobbit", "J.R.R. Tolkien", models.ConfidenceHigh),
			book("Hobbit", "j.r.r. tolkien", models.ConfidenceLow),
			book("", "", models.ConfidenceLow),
			book("", "", models.ConfidenceHigh),
			book("Cosmos", "unknown author", models.ConfidenceLow),
		},
		{
			book("Great Gatsby, The", "fitzgerald", models.ConfidenceMedium),
			book("The Great Gatsby", "F. Scott Fitzgerald", models.ConfidenceHigh),
			book("Tender Is the Night", "F. Scott Fitzgerald", models.ConfidenceHigh),
		},
	}

	for _, input := range inputs {
		once := Merge(input)
		assert.Equal(t, once, Merge(once))
	}
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	input := []models.BookCandidate{
		book("Dune", "Frank Herbert", models.ConfidenceHigh),
		book("Dune", "Frank Herbert", models.ConfidenceLow),
	}
	snapshot := append([]models.BookCandidate(nil), input...)

	_ = Merge(input)

	assert.Equal(t, snapshot, input)
}
