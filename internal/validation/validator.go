// Package validation runs the correction pass over merged book candidates.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
	"github.com/shelfscan/shelfscan/internal/repair"
)

const (
	DefaultBatchSize = 10
	DefaultTimeout   = 30 * time.Second
)

// Validator asks a text model to check and correct candidates in batches
type Validator struct {
	provider  providers.Provider
	model     string
	batchSize int
	timeout   time.Duration
	logger    *slog.Logger
}

// Option customizes a Validator
type Option func(*Validator)

// WithBatchSize sets how many candidates go into one correction request
func WithBatchSize(size int) Option {
	return func(v *Validator) {
		if size > 0 {
			v.batchSize = size
		}
	}
}

// WithTimeout bounds each correction request
func WithTimeout(timeout time.Duration) Option {
	return func(v *Validator) {
		v.timeout = timeout
	}
}

// WithLogger overrides the default logger
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a validator. A nil provider disables correction and every
// candidate is passed through.
func New(provider providers.Provider, model string, opts ...Option) *Validator {
	v := &Validator{
		provider:  provider,
		model:     model,
		batchSize: DefaultBatchSize,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type analysis struct {
	IsValid    *bool  `json:"isValid"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Confidence string `json:"confidence"`
	Reason     string `json:"reason"`
}

// Validate returns exactly one book per candidate, in candidate order. A batch
// whose correction request fails or cannot be parsed is passed through.
func (v *Validator) Validate(ctx context.Context, candidates []models.BookCandidate) ([]models.ValidatedBook, models.ValidationDiagnostic) {
	books := make([]models.ValidatedBook, 0, len(candidates))
	var diag models.ValidationDiagnostic

	if v == nil || v.provider == nil {
		for _, c := range candidates {
			books = append(books, models.PassThrough(c))
		}
		return books, diag
	}

	for start := 0; start < len(candidates); start += v.batchSize {
		end := min(start+v.batchSize, len(candidates))
		batch := candidates[start:end]
		diag.Batches++

		results, err := v.requestBatch(ctx, batch)
		if err != nil {
			diag.FailedBatches++
			v.logger.Warn("Validation batch passed through",
				"batch", diag.Batches,
				"size", len(batch),
				"err", err)
		}

		for i, c := range batch {
			if i >= len(results) {
				books = append(books, models.PassThrough(c))
				continue
			}
			book := apply(c, results[i])
			if !book.IsValid {
				diag.Invalid++
			}
			if book.Title != c.Title || book.Author != c.Author {
				diag.Corrected++
			}
			books = append(books, book)
		}
	}

	v.logger.Info("Validation complete",
		"books", len(books),
		"batches", diag.Batches,
		"failed_batches", diag.FailedBatches,
		"invalid", diag.Invalid,
		"corrected", diag.Corrected)
	return books, diag
}

func (v *Validator) requestBatch(ctx context.Context, batch []models.BookCandidate) ([]analysis, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	text, err := v.provider.ExtractText(ctx, providers.Config{
		Model:       v.model,
		Temperature: 0.1,
		Prompt:      BuildPrompt(batch),
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("correction request failed: %w", err)
	}

	raw, ok := repair.ExtractArray(text)
	if !ok {
		return nil, fmt.Errorf("no JSON array in correction response")
	}

	var results []analysis
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("failed to decode correction response: %w", err)
	}
	if len(results) < len(batch) {
		v.logger.Warn("Partial correction response", "expected", len(batch), "got", len(results))
	}
	return results, nil
}

func apply(c models.BookCandidate, a analysis) models.ValidatedBook {
	book := models.ValidatedBook{
		Title:      firstNonEmpty(a.Title, c.Title),
		Author:     firstNonEmpty(a.Author, c.Author),
		Confidence: c.Confidence,
		IsValid:    a.IsValid == nil || *a.IsValid,
		Reason:     strings.TrimSpace(a.Reason),
	}
	if strings.TrimSpace(a.Confidence) != "" {
		book.Confidence = models.ParseConfidence(a.Confidence)
	}
	if !book.IsValid {
		book.Confidence = models.ConfidenceLow
	}
	return book
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// BuildPrompt renders the correction request for one batch
func BuildPrompt(batch []models.BookCandidate) string {
	var b strings.Builder
	b.WriteString("These book titles and authors were read from spines in a photograph of a bookshelf. ")
	b.WriteString("OCR mistakes are common. For each entry decide whether it is a real published book, ")
	b.WriteString("and correct obvious misspellings of the title or author.\n\n")

	for i, c := range batch {
		author := c.Author
		if author == "" {
			author = "unknown"
		}
		fmt.Fprintf(&b, "%d. Title: %s | Author: %s | Confidence: %s\n", i+1, c.Title, author, c.Confidence)
	}

	fmt.Fprintf(&b, "\nReturn ONLY a JSON array with exactly %d objects, in the same order as the list above:\n", len(batch))
	b.WriteString(`[{"isValid": true, "title": "corrected title", "author": "corrected author", "confidence": "high", "reason": "short explanation"}]`)
	b.WriteString("\nKeep the original title and author when no correction is needed.")
	return b.String()
}
