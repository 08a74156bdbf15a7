// Package recognition drives the vision providers that read book spines from
// a shelf photograph.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
	"github.com/shelfscan/shelfscan/internal/ratelimit"
	"github.com/shelfscan/shelfscan/internal/repair"
)

// ErrTransport marks failures worth retrying: network errors, timeouts and
// non-success responses.
var ErrTransport = errors.New("transport failure")

// Prompt is the instruction sent with every shelf image
const Prompt = `You are looking at a photograph of a bookshelf. Identify every book whose spine or cover is readable.

For each book report:
- title: the book title exactly as printed, without series numbers
- author: the author's name as printed, or "" if it is not visible
- confidence: "high" if the text is clearly legible, "medium" if partly legible, "low" if you are guessing

Return ONLY a JSON array, with no commentary and no markdown, in this form:
[{"title": "...", "author": "...", "confidence": "high"}]

If no books are visible return [].`

// Adapter wraps one Recognizer with a hard per-call timeout and feeds the raw
// output through the repair parser.
type Adapter struct {
	client  providers.Recognizer
	models  []string
	timeout time.Duration
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// AdapterOption customizes an Adapter
type AdapterOption func(*Adapter)

// WithFallbackModel sets the alternate model tried after an overload or an
// empty result from the primary model.
func WithFallbackModel(model string) AdapterOption {
	return func(a *Adapter) {
		if model != "" && model != a.models[0] {
			a.models = append(a.models[:1], model)
		}
	}
}

// WithLimiter rate limits outbound calls
func WithLimiter(limiter *ratelimit.Limiter) AdapterOption {
	return func(a *Adapter) {
		a.limiter = limiter
	}
}

// WithAdapterLogger overrides the default logger
func WithAdapterLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter creates an adapter for client using model as the primary variant
func NewAdapter(client providers.Recognizer, model string, timeout time.Duration, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		client:  client,
		models:  []string{model},
		timeout: timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.client.Name()
}

// Models returns the primary model followed by the fallback, if any
func (a *Adapter) Models() []string {
	return append([]string(nil), a.models...)
}

// Recognize issues exactly one recognition request. Refusals and unusable
// output yield an empty slice and no error. Errors are either overload errors
// (providers.ErrOverloaded), providers.ErrNotConfigured, or ErrTransport.
func (a *Adapter) Recognize(ctx context.Context, model string, img models.Image) ([]models.BookCandidate, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.client.Recognize(ctx, model, img, Prompt)
	if err != nil {
		a.logger.Warn("Recognition request failed",
			"provider", a.Name(),
			"model", model,
			"elapsed", time.Since(start).Round(time.Millisecond),
			"err", err)
		switch {
		case providers.IsOverloaded(err), errors.Is(err, providers.ErrNotConfigured):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	if !resp.HasText() {
		a.logger.Warn("Recognition returned no text",
			"provider", a.Name(),
			"model", model,
			"kind", resp.Kind,
			"detail", resp.Detail)
		return []models.BookCandidate{}, nil
	}

	candidates, strategy := repair.ParseWithStrategy(resp.Text)
	a.logger.Info("Recognition complete",
		"provider", a.Name(),
		"model", model,
		"kind", resp.Kind,
		"strategy", strategy,
		"candidates", len(candidates),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return candidates, nil
}
