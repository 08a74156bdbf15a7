package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
)

const recognizeMaxTokens = 8192

// request is one GenerateContent call
type request struct {
	Model       string
	Temperature float32
	MaxTokens   int32
	JSON        bool
	Parts       []genai.Part
}

type generator interface {
	Generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error)
}

// apiGenerator talks to the Gemini API, opening a client per call
type apiGenerator struct {
	apiKey string
}

func (a apiGenerator) Generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	return model.GenerateContent(ctx, req.Parts...)
}

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey string
	gen    generator
}

// New returns a new Gemini provider
func New(apiKey string) *Gemini {
	apiKey = strings.TrimSpace(apiKey)
	return &Gemini{apiKey: apiKey, gen: apiGenerator{apiKey: apiKey}}
}

// Name identifies the provider in diagnostics
func (g *Gemini) Name() string {
	return "gemini"
}

// ExtractText extracts text from the given prompt using Gemini
func (g *Gemini) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set: %w", providers.ErrNotConfigured)
	}

	resp, err := g.gen.Generate(ctx, request{
		Model:       config.Model,
		Temperature: float32(config.Temperature),
		MaxTokens:   int32(config.MaxTokens),
		Parts:       []genai.Part{genai.Text(config.Prompt)},
	})
	if err != nil {
		return "", classify(err)
	}

	decided := decide(resp)
	if !decided.HasText() {
		return "", fmt.Errorf("no content returned from Gemini (%s: %s)", decided.Kind, decided.Detail)
	}
	return decided.Text, nil
}

// Recognize sends the shelf image to the given model variant
func (g *Gemini) Recognize(ctx context.Context, model string, img models.Image, prompt string) (providers.Response, error) {
	if g.apiKey == "" {
		return providers.Response{}, fmt.Errorf("GEMINI_API_KEY environment variable not set: %w", providers.ErrNotConfigured)
	}

	resp, err := g.gen.Generate(ctx, request{
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   recognizeMaxTokens,
		JSON:        true,
		Parts:       []genai.Part{genai.Text(prompt), genai.ImageData(img.Format(), img.Data)},
	})
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return providers.NewResponse("", blocked.Error(), false, ""), nil
		}
		return providers.Response{}, classify(err)
	}
	return decide(resp), nil
}

// decide maps the first candidate onto a tagged response
func decide(resp *genai.GenerateContentResponse) providers.Response {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return providers.NewResponse("", fmt.Sprintf("prompt blocked: %v", resp.PromptFeedback.BlockReason), false, "")
		}
		return providers.NewResponse("", "", false, "no candidates")
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text.WriteString(string(txt))
			}
		}
	}

	var refusal string
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		refusal = fmt.Sprintf("finish reason %v", candidate.FinishReason)
	}

	return providers.NewResponse(
		strings.TrimSpace(text.String()),
		refusal,
		candidate.FinishReason == genai.FinishReasonMaxTokens,
		fmt.Sprintf("%v", candidate.FinishReason),
	)
}

// classify tags capacity errors so the caller can fall back to another model
func classify(err error) error {
	if isOverloaded(err) {
		return fmt.Errorf("gemini: %w: %w", providers.ErrOverloaded, err)
	}
	return fmt.Errorf("failed to generate content: %w", err)
}

func isOverloaded(err error) bool {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPCode() == http.StatusServiceUnavailable {
			return true
		}
		if status := apiErr.GRPCStatus(); status != nil && status.Code() == codes.Unavailable {
			return true
		}
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusServiceUnavailable {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "overloaded")
}
