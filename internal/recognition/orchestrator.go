package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
)

const (
	DefaultAttempts = 2
	DefaultBackoff  = time.Second
)

// Sleeper pauses between attempts. It returns early with ctx.Err() when the
// context is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ProviderResult is one provider's contribution to a scan
type ProviderResult struct {
	Name       string
	Candidates []models.BookCandidate
	Diagnostic models.ProviderDiagnostic
}

// Orchestrator fans a shelf image out to every configured adapter
type Orchestrator struct {
	adapters []*Adapter
	attempts int
	backoff  time.Duration
	sleep    Sleeper
	logger   *slog.Logger
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithRetry sets the attempt count per model and the linear backoff base
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if backoff >= 0 {
			o.backoff = backoff
		}
	}
}

// WithSleeper replaces the wall-clock sleep between attempts
func WithSleeper(sleep Sleeper) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithLogger overrides the default logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator. Adapter order is significant: it
// fixes the order in which candidates are concatenated for deduplication.
func NewOrchestrator(adapters []*Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters: adapters,
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		sleep:    sleepContext,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Providers returns the configured provider names in order
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.adapters))
	for _, a := range o.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Run queries every adapter concurrently and waits for all of them. It always
// returns one result per adapter, in adapter order.
func (o *Orchestrator) Run(ctx context.Context, img models.Image) []ProviderResult {
	results := make([]ProviderResult, len(o.adapters))

	var wg sync.WaitGroup
	for i, a := range o.adapters {
		wg.Add(1)
		go func(i int, a *Adapter) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("Provider panicked", "provider", a.Name(), "panic", r)
					results[i] = ProviderResult{
						Name:       a.Name(),
						Candidates: []models.BookCandidate{},
						Diagnostic: models.ProviderDiagnostic{Error: fmt.Sprintf("panic: %v", r)},
					}
				}
			}()
			results[i] = o.runProvider(ctx, a, img)
		}(i, a)
	}
	wg.Wait()

	return results
}

// Candidates concatenates the candidates of every result in order
func Candidates(results []ProviderResult) []models.BookCandidate {
	total := 0
	for _, r := range results {
		total += len(r.Candidates)
	}
	all := make([]models.BookCandidate, 0, total)
	for _, r := range results {
		all = append(all, r.Candidates...)
	}
	return all
}

// Diagnostics indexes the per-provider diagnostics by provider name
func Diagnostics(results []ProviderResult) map[string]models.ProviderDiagnostic {
	diags := make(map[string]models.ProviderDiagnostic, len(results))
	for _, r := range results {
		diags[r.Name] = r.Diagnostic
	}
	return diags
}

func (o *Orchestrator) runProvider(ctx context.Context, a *Adapter, img models.Image) ProviderResult {
	variants := a.Models()
	hasFallback := len(variants) > 1

	candidates, attempts, err := o.attempt(ctx, a, variants[0], img, !hasFallback)
	model := variants[0]

	if hasFallback && (providers.IsOverloaded(err) || (err == nil && len(candidates) == 0)) {
		o.logger.Info("Trying fallback model",
			"provider", a.Name(),
			"primary", variants[0],
			"fallback", variants[1],
			"overloaded", err != nil)

		// The fallback is the last resort, so an overload here is final.
		fallback, fallbackAttempts, fallbackErr := o.attempt(ctx, a, variants[1], img, false)
		attempts += fallbackAttempts
		// An empty primary success stands if the fallback fails outright.
		if fallbackErr == nil || err != nil {
			candidates, err, model = fallback, fallbackErr, variants[1]
		}
	}

	diag := models.ProviderDiagnostic{
		Count:     len(candidates),
		Succeeded: err == nil,
		Model:     model,
		Attempts:  attempts,
	}
	if err != nil {
		diag.Error = err.Error()
		candidates = []models.BookCandidate{}
		o.logger.Warn("Provider contributed nothing",
			"provider", a.Name(),
			"model", model,
			"attempts", attempts,
			"err", err)
	}
	if candidates == nil {
		candidates = []models.BookCandidate{}
	}

	return ProviderResult{Name: a.Name(), Candidates: candidates, Diagnostic: diag}
}

// attempt calls one model up to o.attempts times. Transport failures are
// retried with linear backoff; an overload is retried only when
// retryOverload is set.
func (o *Orchestrator) attempt(ctx context.Context, a *Adapter, model string, img models.Image, retryOverload bool) ([]models.BookCandidate, int, error) {
	var lastErr error
	for i := 1; i <= o.attempts; i++ {
		candidates, err := a.Recognize(ctx, model, img)
		if err == nil {
			return candidates, i, nil
		}
		lastErr = err

		retryable := errors.Is(err, ErrTransport) ||
			(retryOverload && providers.IsOverloaded(err))
		if !retryable || i == o.attempts {
			return nil, i, lastErr
		}

		wait := o.backoff * time.Duration(i)
		o.logger.Debug("Retrying recognition",
			"provider", a.Name(),
			"model", model,
			"attempt", i,
			"backoff", wait)
		if err := o.sleep(ctx, wait); err != nil {
			return nil, i, fmt.Errorf("%w: %w", lastErr, err)
		}
	}
	return nil, o.attempts, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
