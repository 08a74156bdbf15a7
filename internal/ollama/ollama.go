package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
)

// DefaultURL is where a local Ollama listens
const DefaultURL = "http://localhost:11434"

// Ollama is a provider for Ollama
type Ollama struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a new Ollama provider
func New(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Name identifies the provider in diagnostics
func (o *Ollama) Name() string {
	return "ollama"
}

type generateResponse struct {
	Response   string `json:"response"`
	DoneReason string `json:"done_reason"`
	Error      string `json:"error"`
}

// ExtractText extracts text from the given prompt using Ollama
func (o *Ollama) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	options := map[string]any{
		"temperature": config.Temperature,
	}
	if config.MaxTokens > 0 {
		options["num_predict"] = config.MaxTokens
	}
	response, err := o.generate(ctx, map[string]any{
		"model":   config.Model,
		"prompt":  config.Prompt,
		"stream":  false,
		"options": options,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response.Response) == "" {
		return "", fmt.Errorf("empty response from Ollama (done_reason=%s)", response.DoneReason)
	}
	return strings.TrimSpace(response.Response), nil
}

// Recognize sends the shelf image to a vision-capable local model
func (o *Ollama) Recognize(ctx context.Context, model string, img models.Image, prompt string) (providers.Response, error) {
	response, err := o.generate(ctx, map[string]any{
		"model":  model,
		"prompt": prompt,
		"images": []string{img.Base64()},
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0.1,
		},
	})
	if err != nil {
		return providers.Response{}, err
	}
	return providers.NewResponse(
		strings.TrimSpace(response.Response),
		"",
		response.DoneReason == "length",
		response.DoneReason,
	), nil
}

func (o *Ollama) generate(ctx context.Context, requestBody map[string]any) (generateResponse, error) {
	var response generateResponse

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return response, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return response, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return response, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return response, &providers.StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return response, fmt.Errorf("failed to decode response body: %w", err)
	}
	if response.Error != "" {
		return response, fmt.Errorf("ollama error: %s", response.Error)
	}
	return response, nil
}
