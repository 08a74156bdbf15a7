package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
)

func newServer(t *testing.T, status int, payload any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		assert.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func choice(content, refusal, finishReason string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
					"refusal": refusal,
				},
				"finish_reason": finishReason,
			},
		},
	}
}

func TestRecognizeResponseShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		kind    providers.ResponseKind
		text    string
	}{
		{
			name:    "content",
			payload: choice(`[{"title":"Dune"}]`, "", "stop"),
			kind:    providers.KindText,
			text:    `[{"title":"Dune"}]`,
		},
		{
			name:    "refusal",
			payload: choice("", "I can't identify people", "stop"),
			kind:    providers.KindRefusal,
		},
		{
			name:    "length cut off",
			payload: choice(`[{"title":"Du`, "", "length"),
			kind:    providers.KindTruncated,
			text:    `[{"title":"Du`,
		},
		{
			name:    "no choices",
			payload: map[string]any{"choices": []any{}},
			kind:    providers.KindEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, http.StatusOK, tt.payload)
			client := New("test-key", server.URL)

			resp, err := client.Recognize(context.Background(), "gpt-4o", models.Image{Data: []byte("img"), MIMEType: "image/png"}, "prompt")
			require.NoError(t, err)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Equal(t, tt.text, resp.Text)
		})
	}
}

func TestRecognizeSendsImage(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(choice("[]", "", "stop"))
	}))
	defer server.Close()

	client := New("test-key", server.URL)
	_, err := client.Recognize(context.Background(), "gpt-4o", models.Image{Data: []byte("img"), MIMEType: "image/png"}, "list the books")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", body["model"])
	messages := body["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	imagePart := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,aW1n", imagePart["url"])
}

func TestRecognizeErrors(t *testing.T) {
	t.Run("overloaded", func(t *testing.T) {
		server := newServer(t, http.StatusServiceUnavailable, map[string]any{"error": map[string]any{"message": "overloaded"}})
		_, err := New("test-key", server.URL).Recognize(context.Background(), "gpt-4o", models.Image{}, "p")

		require.Error(t, err)
		assert.True(t, providers.IsOverloaded(err))
		assert.Contains(t, err.Error(), "overloaded")
	})

	t.Run("server error", func(t *testing.T) {
		server := newServer(t, http.StatusInternalServerError, map[string]any{"error": map[string]any{"message": "boom"}})
		_, err := New("test-key", server.URL).Recognize(context.Background(), "gpt-4o", models.Image{}, "p")

		var statusErr *providers.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
		assert.Equal(t, "boom", statusErr.Body)
		assert.False(t, providers.IsOverloaded(err))
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := New("", "http://127.0.0.1:1").Recognize(context.Background(), "gpt-4o", models.Image{}, "p")
		assert.True(t, errors.Is(err, providers.ErrNotConfigured))
	})
}

func TestExtractText(t *testing.T) {
	server := newServer(t, http.StatusOK, choice("  corrected  ", "", "stop"))

	text, err := New("test-key", server.URL).ExtractText(context.Background(), providers.Config{Model: "gpt-4o-mini", Prompt: "fix"})
	require.NoError(t, err)
	assert.Equal(t, "corrected", text)

	refusing := newServer(t, http.StatusOK, choice("", "no", "stop"))
	_, err = New("test-key", refusing.URL).ExtractText(context.Background(), providers.Config{Model: "gpt-4o-mini", Prompt: "fix"})
	assert.Error(t, err)
}
