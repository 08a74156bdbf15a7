// Package scanning turns one shelf photograph into a consolidated book list.
package scanning

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shelfscan/shelfscan/internal/dedup"
	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/recognition"
)

// Recognizer produces one result per configured provider
type Recognizer interface {
	Run(ctx context.Context, img models.Image) []recognition.ProviderResult
}

// Validator corrects merged candidates, one book per candidate
type Validator interface {
	Validate(ctx context.Context, candidates []models.BookCandidate) ([]models.ValidatedBook, models.ValidationDiagnostic)
}

// Service runs recognition, deduplication and validation for a scan
type Service struct {
	recognizer Recognizer
	validator  Validator
	logger     *slog.Logger
	newID      func() string
}

// Option customizes a Service
type Option func(*Service)

// WithLogger overrides the default logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator replaces the scan ID source
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService creates a scan service
func NewService(recognizer Recognizer, validator Validator, opts ...Option) *Service {
	s := &Service{
		recognizer: recognizer,
		validator:  validator,
		logger:     slog.Default(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan never fails: provider, parsing and validation problems all degrade to
// fewer books and are described in the outcome's diagnostics.
func (s *Service) Scan(ctx context.Context, img models.Image) models.ScanOutcome {
	scanID := s.newID()
	logger := s.logger.With("scan_id", scanID)
	start := time.Now()

	logger.Info("Starting scan", "bytes", len(img.Data), "mime_type", img.MIMEType)

	results := s.recognizer.Run(ctx, img)
	candidates := recognition.Candidates(results)
	merged := dedup.Merge(candidates)

	logger.Info("Merged candidates",
		"providers", len(results),
		"candidates", len(candidates),
		"unique", len(merged))

	var (
		books      []models.ValidatedBook
		validation models.ValidationDiagnostic
	)
	if s.validator != nil {
		books, validation = s.validator.Validate(ctx, merged)
	} else {
		books = make([]models.ValidatedBook, 0, len(merged))
		for _, c := range merged {
			books = append(books, models.PassThrough(c))
		}
	}

	outcome := models.ScanOutcome{
		ScanID:              scanID,
		Books:               books,
		ProviderDiagnostics: recognition.Diagnostics(results),
		Validation:          validation,
	}

	logger.Info("Scan complete",
		"books", len(books),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return outcome
}
