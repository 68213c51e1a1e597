package genai

import "context"

// Options control a single generation call.
type Options struct {
	Temperature     float32
	MaxOutputTokens int
}

// Client is the text generation interface the consult pipeline depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
