package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTimeout bounds a single model call, matching the provider's own
	// order-of-tens-of-seconds latency for vision requests.
	DefaultTimeout = 30 * time.Second
)

// GeminiConfig configures the Gemini-backed gateway client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini implements Client on top of the Google GenAI SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini gateway client. The API key may be empty, in
// which case the SDK falls back to its own environment lookup.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Generate sends the prompt to Gemini and returns the raw reply text.
// Provider failures come back as a *ProviderError; an invalid prompt is
// rejected before any call is made. Exactly one attempt is made.
func (g *Gemini) Generate(ctx context.Context, p Prompt) (string, error) {
	if err := p.validate(); err != nil {
		return "", fmt.Errorf("Generate: invalid prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	parts := []*genai.Part{{Text: p.Text}}
	if len(p.Image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: p.ImageMIME,
				Data:     p.Image,
			},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", tagProviderError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{Message: "empty response from model"}
	}

	return text, nil
}

// tagProviderError classifies a GenerateContent failure. An APIError means
// the provider answered and rejected the request; everything else is treated
// as a transport failure.
func tagProviderError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Err:     err,
		}
	}
	return &ProviderError{
		Transport: true,
		Message:   err.Error(),
		Err:       err,
	}
}
