package llm

import (
	"context"
	"strings"
)

// Mock is a deterministic generator for tests. It echoes a canned response,
// or the prompt itself when none is configured.
type Mock struct {
	Response string
	// Err, when set, is returned by every call.
	Err error
	// Prompts records every prompt passed in, for assertions.
	Prompts []string
}

func (m *Mock) response(prompt string) string {
	if m.Response != "" {
		return m.Response
	}
	return prompt
}

// Generate returns the canned response.
func (m *Mock) Generate(_ context.Context, prompt string, _ Options) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Prompts = append(m.Prompts, prompt)
	return m.response(prompt), nil
}

// GenerateStream streams the canned response word by word.
func (m *Mock) GenerateStream(ctx context.Context, prompt string, _ Options) (<-chan string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Prompts = append(m.Prompts, prompt)
	words := strings.SplitAfter(m.response(prompt), " ")
	tokens := make(chan string)
	go func() {
		defer close(tokens)
		for _, w := range words {
			select {
			case tokens <- w:
			case <-ctx.Done():
				return
			}
		}
	}()
	return tokens, nil
}
