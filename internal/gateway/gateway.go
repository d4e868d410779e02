// Package gateway sends a single user message or receipt image to an external
// AI model and hands back the raw textual reply. It is transport only: no
// retries, no persistence, and no interpretation of the reply.
package gateway

import (
	"context"
	"fmt"
	"strings"
)

// MaxImageBytes bounds the size of an inline image payload.
const MaxImageBytes = 8 << 20

// allowedImageMIMEs is the MIME allow-list for image prompts.
var allowedImageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidImageMIME reports whether the MIME type is accepted for image prompts.
func ValidImageMIME(mimeType string) bool {
	return allowedImageMIMEs[mimeType]
}

// Prompt is the provider-agnostic input for one model call. Text carries the
// instructions (and, for text ingestion, the user's message); Image optionally
// attaches a receipt photo.
type Prompt struct {
	Text string

	Image     []byte
	ImageMIME string
}

// TextPrompt builds a text-only prompt.
func TextPrompt(text string) Prompt {
	return Prompt{Text: text}
}

// ImagePrompt builds a prompt carrying instructions plus an image payload.
func ImagePrompt(text string, data []byte, mimeType string) Prompt {
	return Prompt{Text: text, Image: data, ImageMIME: mimeType}
}

func (p Prompt) validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return fmt.Errorf("prompt text is empty")
	}
	if len(p.Image) > 0 {
		if len(p.Image) > MaxImageBytes {
			return fmt.Errorf("image payload is %d bytes, limit is %d", len(p.Image), MaxImageBytes)
		}
		if !ValidImageMIME(p.ImageMIME) {
			return fmt.Errorf("unsupported image MIME type %q", p.ImageMIME)
		}
	}
	return nil
}

// Client is the provider-agnostic gateway contract. Implementations make at
// most one attempt per call; retry policy belongs to the caller.
type Client interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// ProviderError is the tagged failure for a gateway call. Transport marks
// errors where the provider could not be reached or did not answer (network,
// timeout); Transport=false means the provider answered with an application
// error of its own. Message keeps the provider's raw diagnostic either way.
type ProviderError struct {
	Transport bool
	Code      int
	Message   string
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Transport {
		return fmt.Sprintf("ai provider unreachable: %s", e.Message)
	}
	return fmt.Sprintf("ai provider error (code %d): %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }
