package repair

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscan/shelfscan/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []models.BookCandidate
		strategy Strategy
	}{
		{
			name:  "plain array",
			input: `[{"title":"Dune","author":"Frank Herbert","confidence":"high"}]`,
			expected: []models.BookCandidate{
				{Title: "Dune", Author: "Frank Herbert", Confidence: models.ConfidenceHigh},
			},
			strategy: StrategyDirect,
		},
		{
			name:  "fenced with language tag",
			input: "```json\n[{\"title\":\"Emma\",\"author\":\"Jane Austen\",\"confidence\":\"medium\"}]\n```",
			expected: []models.BookCandidate{
				{Title: "Emma", Author: "Jane Austen", Confidence: models.ConfidenceMedium},
			},
			strategy: StrategyDirect,
		},
		{
			name:  "wrapped in prose",
			input: "Here are the books I found:\n[{\"title\":\"Emma\",\"author\":\"Jane Austen\",\"confidence\":\"high\"}]\nLet me know!",
			expected: []models.BookCandidate{
				{Title: "Emma", Author: "Jane Austen", Confidence: models.ConfidenceHigh},
			},
			strategy: StrategyBrackets,
		},
		{
			name:  "missing author and confidence",
			input: `[{"title":"Ulysses"}]`,
			expected: []models.BookCandidate{
				{Title: "Ulysses", Author: "", Confidence: models.ConfidenceLow},
			},
			strategy: StrategyDirect,
		},
		{
			name:  "unknown confidence falls back to low",
			input: `[{"title":"Ulysses","author":"James Joyce","confidence":"certain"}]`,
			expected: []models.BookCandidate{
				{Title: "Ulysses", Author: "James Joyce", Confidence: models.ConfidenceLow},
			},
			strategy: StrategyDirect,
		},
		{
			name:  "truncated mid-value",
			input: `[{"title":"Dune","author":"Frank Herbert","confidence":"high"},{"title":"Dragonfly in Am`,
			expected: []models.BookCandidate{
				{Title: "Dune", Author: "Frank Herbert", Confidence: models.ConfidenceHigh},
				{Title: "Dragonfly in Am", Author: "", Confidence: models.ConfidenceLow},
			},
			strategy: StrategyRepaired,
		},
		{
			name:  "objects scattered in prose",
			input: `First {"title":"Emma","author":"Jane Austen","confidence":"high"} and then {"title":"Persuasion","author":"Jane Austen"} done`,
			expected: []models.BookCandidate{
				{Title: "Emma", Author: "Jane Austen", Confidence: models.ConfidenceHigh},
				{Title: "Persuasion", Author: "Jane Austen", Confidence: models.ConfidenceLow},
			},
			strategy: StrategyObjects,
		},
		{
			name:     "no json at all",
			input:    "I could not see any books in this image.",
			expected: []models.BookCandidate{},
			strategy: StrategyNone,
		},
		{
			name:     "empty array",
			input:    "[]",
			expected: []models.BookCandidate{},
			strategy: StrategyNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, strategy := ParseWithStrategy(tt.input)
			assert.Equal(t, tt.expected, candidates)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestParseRecoversTruncatedKey(t *testing.T) {
	input := `[{"title":"A","author":"B","confidence":"high"},{"title":"C","author":"D","confid`

	candidates := Parse(input)

	require.NotEmpty(t, candidates)
	assert.Equal(t, models.BookCandidate{Title: "A", Author: "B", Confidence: models.ConfidenceHigh}, candidates[0])
}

func TestParseLenientFieldTypes(t *testing.T) {
	input := `[{"title":1984,"author":["Aldous Huxley", "Someone Else"],"confidence":null}]`

	candidates := Parse(input)

	require.Len(t, candidates, 1)
	assert.Equal(t, "1984", candidates[0].Title)
	assert.Equal(t, "Aldous Huxley, Someone Else", candidates[0].Author)
	assert.Equal(t, models.ConfidenceLow, candidates[0].Confidence)
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{
			name:     "closes open string and containers",
			input:    `[{"title":"Dun`,
			expected: `[{"title":"Dun"}]`,
			ok:       true,
		},
		{
			name:     "drops dangling key",
			input:    `[{"title":"A","auth`,
			expected: `[{"title":"A"}]`,
			ok:       true,
		},
		{
			name:     "fills missing value",
			input:    `[{"title":"A","author":`,
			expected: `[{"title":"A","author":null}]`,
			ok:       true,
		},
		{
			name:     "drops trailing comma",
			input:    `[{"title":"A"},`,
			expected: `[{"title":"A"}]`,
			ok:       true,
		},
		{
			name:     "cuts back to last complete element",
			input:    `[{"title":"A"},{"title":"B","confidence":hig`,
			expected: `[{"title":"A"}]`,
			ok:       true,
		},
		{
			name:     "ignores text after a closed array",
			input:    `prefix [{"title":"A"}] trailing ]`,
			expected: `[{"title":"A"}]`,
			ok:       true,
		},
		{
			name:     "escaped quote inside value",
			input:    `[{"title":"The \"Best\" Boo`,
			expected: `[{"title":"The \"Best\" Boo"}]`,
			ok:       true,
		},
		{
			name:  "no array",
			input: `{"title":"A"}`,
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired, ok := Repair(tt.input)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.expected, repaired)
			assert.True(t, json.Valid([]byte(repaired)))
		})
	}
}

func TestRepairDoesNotModifyInput(t *testing.T) {
	input := `[{"title":"A","author":"B"`
	original := input

	_, ok := Repair(input)

	assert.True(t, ok)
	assert.Equal(t, original, input)
}

func TestExtractArray(t *testing.T) {
	raw, ok := ExtractArray("Sure!\n```json\n[{\"isValid\":true}]\n```")
	require.True(t, ok)
	assert.JSONEq(t, `[{"isValid":true}]`, string(raw))

	raw, ok = ExtractArray(`The answer: [{"isValid":false}] hope that helps`)
	require.True(t, ok)
	assert.JSONEq(t, `[{"isValid":false}]`, string(raw))

	_, ok = ExtractArray(`[{"isValid":false},{"isVal`)
	assert.False(t, ok)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "[1]", StripCodeFence("```json\n[1]\n```"))
	assert.Equal(t, "[1]", StripCodeFence("```\n[1]\n```"))
	assert.Equal(t, "[1]", StripCodeFence("```[1]```"))
	assert.Equal(t, "[1]", StripCodeFence("  [1]  "))
}
