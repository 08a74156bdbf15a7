package openai

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

const (
	// DefaultBaseURL is the chat completions endpoint
	DefaultBaseURL = "https://api.openai.com/v1/chat/completions"

	finishReasonLength = "length"
	recognizeMaxTokens = 4000
)

// OpenAI is a provider for OpenAI chat completions
type OpenAI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New returns a new OpenAI provider. An empty baseURL uses the public API.
func New(apiKey, baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenAI{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Name identifies the provider in diagnostics
func (o *OpenAI) Name() string {
	return "openai"
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractText runs a text-only completion
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}
	requestBody := map[string]any{
		"model": config.Model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": config.Prompt,
			},
		},
		"max_tokens":  maxTokens,
		"temperature": config.Temperature,
	}

	completion, err := o.send(ctx, requestBody)
	if err != nil {
		return "", err
	}

	resp := decide(completion)
	if !resp.HasText() {
		return "", fmt.Errorf("no content returned from OpenAI (%s: %s)", resp.Kind, resp.Detail)
	}
	return resp.Text, nil
}

// Recognize sends the shelf image with the instruction prompt
func (o *OpenAI) Recognize(ctx context.Context, model string, img models.Image, prompt string) (providers.Response, error) {
	requestBody := map[string]any{
		"model": model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "text",
						"text": prompt,
					},
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url":    img.DataURL(),
							"detail": "high",
						},
					},
				},
			},
		},
		"max_tokens":  recognizeMaxTokens,
		"temperature": 0.1,
	}

	completion, err := o.send(ctx, requestBody)
	if err != nil {
		return providers.Response{}, err
	}
	return decide(completion), nil
}

func (o *OpenAI) send(ctx context.Context, requestBody map[string]any) (chatCompletionResponse, error) {
	var completion chatCompletionResponse
	if o.apiKey == "" {
		return completion, fmt.Errorf("OPENAI_API_KEY not set: %w", providers.ErrNotConfigured)
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return completion, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return completion, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return completion, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return completion, &providers.StatusError{Provider: "openai", StatusCode: resp.StatusCode, Body: errorMessage(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return completion, fmt.Errorf("failed to decode OpenAI response: %w", err)
	}
	if completion.Error != nil {
		return completion, fmt.Errorf("openAI API error: %s", completion.Error.Message)
	}
	return completion, nil
}

// decide maps the loosely shaped completion onto a tagged response
func decide(completion chatCompletionResponse) providers.Response {
	if len(completion.Choices) == 0 {
		return providers.NewResponse("", "", false, "no choices")
	}
	choice := completion.Choices[0]
	return providers.NewResponse(
		strings.TrimSpace(choice.Message.Content),
		strings.TrimSpace(choice.Message.Refusal),
		choice.FinishReason == finishReasonLength,
		choice.FinishReason,
	)
}

// errorMessage pulls error.message out of an error payload when present
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return string(body)
}
