package providers

import (
	"context"

	"github.com/shelfscan/shelfscan/internal/models"
)

// Config represents the configuration for a text completion request
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	MaxTokens   int
}

// Provider defines the interface for a text-only LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}

// Recognizer defines the interface for a vision provider that can read book
// spines from an image. Implementations issue exactly one request per call.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, model string, img models.Image, prompt string) (Response, error)
}

// ResponseKind tags the shape a provider response arrived in
type ResponseKind int

const (
	KindEmpty ResponseKind = iota
	KindText
	KindRefusal
	KindTruncated
)

func (k ResponseKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindRefusal:
		return "refusal"
	case KindTruncated:
		return "truncated"
	default:
		return "empty"
	}
}

// Response is the decoded payload of a successful provider call
type Response struct {
	Kind ResponseKind
	// Text is set for KindText and may be set for KindTruncated
	Text string
	// Detail carries the refusal message or finish reason
	Detail string
}

// HasText reports whether the response carries text worth parsing
func (r Response) HasText() bool {
	return (r.Kind == KindText || r.Kind == KindTruncated) && r.Text != ""
}

// NewResponse decides the response shape from the fields a provider exposes.
// Content wins over a refusal, and a length cut-off keeps whatever text came
// back so the repair parser can salvage it.
func NewResponse(text, refusal string, truncated bool, finishReason string) Response {
	switch {
	case text != "" && truncated:
		return Response{Kind: KindTruncated, Text: text, Detail: finishReason}
	case text != "":
		return Response{Kind: KindText, Text: text, Detail: finishReason}
	case refusal != "":
		return Response{Kind: KindRefusal, Detail: refusal}
	case truncated:
		return Response{Kind: KindTruncated, Detail: finishReason}
	default:
		return Response{Kind: KindEmpty, Detail: finishReason}
	}
}
