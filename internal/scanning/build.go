package scanning

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfscan/shelfscan/internal/config"
	"github.com/shelfscan/shelfscan/internal/gemini"
	"github.com/shelfscan/shelfscan/internal/ollama"
	"github.com/shelfscan/shelfscan/internal/openai"
	"github.com/shelfscan/shelfscan/internal/providers"
	"github.com/shelfscan/shelfscan/internal/ratelimit"
	"github.com/shelfscan/shelfscan/internal/recognition"
	"github.com/shelfscan/shelfscan/internal/validation"
)

// FromConfig wires the configured providers into a Service. Providers missing
// credentials are still queried so the outcome reports them as not configured.
func FromConfig(cfg config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no recognition providers configured")
	}

	adapters := make([]*recognition.Adapter, 0, len(cfg.Providers))
	seen := make(map[string]bool, len(cfg.Providers))
	for _, name := range cfg.Providers {
		if seen[name] {
			continue
		}
		seen[name] = true

		adapter, err := newAdapter(cfg, name, logger)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}

	orchestrator := recognition.NewOrchestrator(adapters,
		recognition.WithRetry(cfg.RetryAttempts, cfg.RetryBackoff),
		recognition.WithLogger(logger))

	textProvider, err := newTextProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	var validator *validation.Validator
	if textProvider != nil {
		validator = validation.New(textProvider, cfg.ValidationModel,
			validation.WithBatchSize(cfg.ValidationBatchSize),
			validation.WithTimeout(cfg.ValidationTimeout),
			validation.WithLogger(logger))
	} else {
		validator = validation.New(nil, "", validation.WithLogger(logger))
	}

	logger.Info("Scan pipeline configured",
		"providers", orchestrator.Providers(),
		"validation_provider", cfg.ValidationProvider,
		"validation_enabled", textProvider != nil)

	return NewService(orchestrator, validator, WithLogger(logger)), nil
}

func newAdapter(cfg config.Config, name string, logger *slog.Logger) (*recognition.Adapter, error) {
	var (
		client   providers.Recognizer
		model    string
		fallback string
		timeout  time.Duration
	)

	switch name {
	case "gemini":
		client, model, fallback, timeout = gemini.New(cfg.GeminiAPIKey), cfg.GeminiModel, cfg.GeminiFallbackModel, cfg.GeminiTimeout
	case "openai":
		client, model, timeout = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), cfg.OpenAIModel, cfg.OpenAITimeout
	case "ollama":
		client, model, timeout = ollama.New(cfg.OllamaURL), cfg.OllamaModel, cfg.OllamaTimeout
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}

	return recognition.NewAdapter(client, model, timeout,
		recognition.WithFallbackModel(fallback),
		recognition.WithLimiter(ratelimit.New(name, cfg.ProviderRPS)),
		recognition.WithAdapterLogger(logger)), nil
}

// newTextProvider returns nil when validation is disabled or has no credentials
func newTextProvider(cfg config.Config, logger *slog.Logger) (providers.Provider, error) {
	switch cfg.ValidationProvider {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, validation disabled")
			return nil, nil
		}
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, validation disabled")
			return nil, nil
		}
		return gemini.New(cfg.GeminiAPIKey), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("unsupported validation provider: %s", cfg.ValidationProvider)
	}
}
