package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
	last request
}

func (f *fakeGenerator) Generate(_ context.Context, req request) (*genai.GenerateContentResponse, error) {
	f.last = req
	return f.resp, f.err
}

func textResponse(text string, reason genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content:      &genai.Content{Parts: []genai.Part{genai.Text(text)}},
				FinishReason: reason,
			},
		},
	}
}

func newTestGemini(gen generator) *Gemini {
	return &Gemini{apiKey: "test", gen: gen}
}

func TestRecognizeShapes(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		kind providers.ResponseKind
		text string
	}{
		{
			name: "text",
			resp: textResponse(`[{"title":"Dune"}]`, genai.FinishReasonStop),
			kind: providers.KindText,
			text: `[{"title":"Dune"}]`,
		},
		{
			name: "max tokens keeps partial text",
			resp: textResponse(`[{"title":"Du`, genai.FinishReasonMaxTokens),
			kind: providers.KindTruncated,
			text: `[{"title":"Du`,
		},
		{
			name: "safety stop",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			},
			kind: providers.KindRefusal,
		},
		{
			name: "blocked prompt",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
			},
			kind: providers.KindRefusal,
		},
		{
			name: "no candidates",
			resp: &genai.GenerateContentResponse{},
			kind: providers.KindEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{resp: tt.resp}
			resp, err := newTestGemini(gen).Recognize(context.Background(), "gemini-2.5-flash", models.Image{Data: []byte("x"), MIMEType: "image/png"}, "prompt")

			require.NoError(t, err)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Equal(t, tt.text, resp.Text)
			assert.Equal(t, "gemini-2.5-flash", gen.last.Model)
			assert.True(t, gen.last.JSON)
			require.Len(t, gen.last.Parts, 2)
			assert.Equal(t, genai.ImageData("png", []byte("x")), gen.last.Parts[1])
		})
	}
}

func TestRecognizeClassifiesOverload(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		overloaded bool
	}{
		{name: "googleapi 503", err: &googleapi.Error{Code: 503, Message: "unavailable"}, overloaded: true},
		{name: "message", err: errors.New("The model is overloaded. Please try again later."), overloaded: true},
		{name: "bad request", err: &googleapi.Error{Code: 400, Message: "bad"}, overloaded: false},
		{name: "network", err: errors.New("dial tcp: connection refused"), overloaded: false},
		{name: "digits in message", err: errors.New("invalid argument: image 1503 bytes short"), overloaded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestGemini(&fakeGenerator{err: tt.err}).Recognize(context.Background(), "m", models.Image{}, "p")

			require.Error(t, err)
			assert.Equal(t, tt.overloaded, providers.IsOverloaded(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRecognizeBlockedError(t *testing.T) {
	blocked := &genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonOther}}

	resp, err := newTestGemini(&fakeGenerator{err: blocked}).Recognize(context.Background(), "m", models.Image{}, "p")

	require.NoError(t, err)
	assert.Equal(t, providers.KindRefusal, resp.Kind)
}

func TestNotConfigured(t *testing.T) {
	_, err := New("").Recognize(context.Background(), "m", models.Image{}, "p")
	assert.ErrorIs(t, err, providers.ErrNotConfigured)

	_, err = New(" ").ExtractText(context.Background(), providers.Config{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, providers.ErrNotConfigured)
}

func TestExtractText(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("answer", genai.FinishReasonStop)}

	text, err := newTestGemini(gen).ExtractText(context.Background(), providers.Config{Model: "gemini-2.0-flash", Prompt: "q", Temperature: 0.2})

	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.False(t, gen.last.JSON)
	assert.InDelta(t, 0.2, gen.last.Temperature, 0.0001)
}
