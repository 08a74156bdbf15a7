// Package config reads shelfscan settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable of the scan pipeline and the server
type Config struct {
	GeminiAPIKey        string
	GeminiModel         string
	GeminiFallbackModel string
	GeminiTimeout       time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	OllamaURL     string
	OllamaModel   string
	OllamaTimeout time.Duration

	// Providers lists the recognition providers in concatenation order
	Providers []string

	ValidationProvider  string
	ValidationModel     string
	ValidationBatchSize int
	ValidationTimeout   time.Duration

	RetryAttempts int
	RetryBackoff  time.Duration
	ProviderRPS   float64

	DailyScanLimit int
	Port           string
}

// Load builds a Config from the environment, applying defaults for anything
// unset. Malformed numeric or duration values are reported as errors.
func Load() (Config, error) {
	cfg := Config{
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiFallbackModel: getEnv("GEMINI_FALLBACK_MODEL", "gemini-2.0-flash"),
		GeminiTimeout:       60 * time.Second,

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAITimeout: 45 * time.Second,

		OllamaURL:     getEnv("OLLAMA_URL", os.Getenv("OLLAMA_HOST")),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llava"),
		OllamaTimeout: 60 * time.Second,

		Providers: splitList(getEnv("SHELFSCAN_PROVIDERS", "gemini,openai")),

		ValidationProvider: strings.ToLower(getEnv("VALIDATION_PROVIDER", "openai")),
		ValidationModel:    getEnv("VALIDATION_MODEL", "gpt-4o-mini"),
		ValidationTimeout:  30 * time.Second,

		Port: getEnv("PORT", "8888"),
	}

	var err error
	if cfg.ValidationBatchSize, err = getInt("VALIDATION_BATCH_SIZE", 10); err != nil {
		return cfg, err
	}
	if cfg.RetryAttempts, err = getInt("RETRY_ATTEMPTS", 2); err != nil {
		return cfg, err
	}
	if cfg.RetryBackoff, err = getDuration("RETRY_BACKOFF", time.Second); err != nil {
		return cfg, err
	}
	if cfg.ProviderRPS, err = getFloat("PROVIDER_RPS", 2); err != nil {
		return cfg, err
	}
	if cfg.DailyScanLimit, err = getInt("DAILY_SCAN_LIMIT", 0); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			items = append(items, item)
		}
	}
	return items
}
