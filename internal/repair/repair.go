// Package repair recovers book candidate arrays from model output that may be
// wrapped in prose or markdown, or cut off mid-object by a token limit.
package repair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shelfscan/shelfscan/internal/models"
)

// Strategy names the step that produced a parse result
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyBrackets Strategy = "brackets"
	StrategyRepaired Strategy = "repaired"
	StrategyObjects  Strategy = "objects"
	StrategyNone     Strategy = "none"
)

// objectPattern matches flat objects that carry a title key
var objectPattern = regexp.MustCompile(`\{[^{}\[\]]*"title"\s*:[^{}\[\]]*\}`)

// Parse returns the candidates found in text. It never fails; an empty slice
// means nothing usable was found.
func Parse(text string) []models.BookCandidate {
	candidates, _ := ParseWithStrategy(text)
	return candidates
}

// ParseWithStrategy is Parse but also reports which strategy succeeded
func ParseWithStrategy(text string) ([]models.BookCandidate, Strategy) {
	cleaned := StripCodeFence(text)

	if candidates, ok := decodeCandidates(cleaned); ok && len(candidates) > 0 {
		return candidates, StrategyDirect
	}

	if slice, ok := bracketSlice(cleaned); ok {
		if candidates, ok := decodeCandidates(slice); ok && len(candidates) > 0 {
			return candidates, StrategyBrackets
		}
	}

	if repaired, ok := Repair(cleaned); ok {
		if candidates, ok := decodeCandidates(repaired); ok && len(candidates) > 0 {
			return candidates, StrategyRepaired
		}
	}

	if candidates := ExtractObjects(text); len(candidates) > 0 {
		return candidates, StrategyObjects
	}

	return []models.BookCandidate{}, StrategyNone
}

// ExtractArray returns the JSON array contained in text using the direct and
// bracketed-substring strategies only.
func ExtractArray(text string) (json.RawMessage, bool) {
	cleaned := StripCodeFence(text)
	if isArray(cleaned) {
		return json.RawMessage(cleaned), true
	}
	if slice, ok := bracketSlice(cleaned); ok && isArray(slice) {
		return json.RawMessage(slice), true
	}
	return nil, false
}

// StripCodeFence removes a surrounding ``` fence with an optional language tag
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if firstLine, rest, found := strings.Cut(trimmed, "\n"); found && isLanguageTag(firstLine) {
		trimmed = rest
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func isLanguageTag(line string) bool {
	line = strings.TrimSpace(line)
	for _, r := range line {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// ExtractObjects pulls individual complete candidate objects out of text,
// discarding any that do not decode.
func ExtractObjects(text string) []models.BookCandidate {
	matches := objectPattern.FindAllString(text, -1)
	candidates := make([]models.BookCandidate, 0, len(matches))
	for _, match := range matches {
		var raw rawCandidate
		if err := json.Unmarshal([]byte(match), &raw); err != nil {
			continue
		}
		candidates = append(candidates, raw.candidate())
	}
	return candidates
}

func bracketSlice(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func isArray(text string) bool {
	var elements []json.RawMessage
	return json.Unmarshal([]byte(text), &elements) == nil
}

func decodeCandidates(text string) ([]models.BookCandidate, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elements); err != nil {
		return nil, false
	}
	candidates := make([]models.BookCandidate, 0, len(elements))
	for _, element := range elements {
		var raw rawCandidate
		if err := json.Unmarshal(element, &raw); err != nil {
			continue
		}
		candidates = append(candidates, raw.candidate())
	}
	return candidates, true
}

type rawCandidate struct {
	Title      flexString `json:"title"`
	Author     flexString `json:"author"`
	Confidence flexString `json:"confidence"`
}

func (r rawCandidate) candidate() models.BookCandidate {
	return models.BookCandidate{
		Title:      strings.TrimSpace(string(r.Title)),
		Author:     strings.TrimSpace(string(r.Author)),
		Confidence: models.ParseConfidence(string(r.Confidence)),
	}
}

// flexString accepts strings, null, numbers, booleans and arrays of strings
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	switch v := value.(type) {
	case nil:
		*f = ""
	case string:
		*f = flexString(v)
	case float64, bool:
		*f = flexString(strings.TrimSpace(string(data)))
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		*f = flexString(strings.Join(parts, ", "))
	default:
		return fmt.Errorf("unsupported value: %s", data)
	}
	return nil
}
