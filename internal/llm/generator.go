// Package llm generates text from prompts via OpenAI-compatible chat
// endpoints, blocking or streamed.
package llm

import "context"

// Options are per-call generation parameters. Zero values fall back to the
// client's configured defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator turns a prompt into generated text.
type Generator interface {
	// Generate returns the complete response for prompt.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// GenerateStream returns a channel delivering the response as an
	// ordered, finite sequence of text fragments. The channel closes at
	// end of answer, on error, or when ctx is cancelled; the stream is
	// not restartable.
	GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan string, error)
}
