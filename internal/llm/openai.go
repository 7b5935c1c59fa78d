package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const systemPrompt = "You are a helpful assistant."

// OpenAI is a chat client for OpenAI-compatible /chat/completions
// endpoints. Streaming accepts both SSE "data:" lines (OpenAI) and plain
// NDJSON lines (Ollama).
type OpenAI struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	logger      *zap.Logger
}

// Config configures the chat client. APIKeyEnv names the environment
// variable holding the key; empty is allowed for keyless endpoints.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewOpenAI creates a chat client from cfg, applying defaults for unset
// fields.
func NewOpenAI(cfg Config) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		// Generations can run long; the stream context still allows
		// earlier cancellation.
		cfg.Timeout = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	return &OpenAI{
		baseURL:     cfg.BaseURL,
		apiKey:      key,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	// Ollama /api/chat shape.
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Generate returns the complete response for prompt.
func (g *OpenAI) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := g.send(ctx, g.buildRequest(prompt, opts, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) > 0 {
		return out.Choices[0].Message.Content, nil
	}
	if out.Message.Content != "" {
		return out.Message.Content, nil
	}
	return "", errors.New("no completion in response")
}

// GenerateStream returns a channel of response fragments. The request is
// issued before returning, so transport errors surface synchronously;
// mid-stream errors are logged and end the stream.
func (g *OpenAI) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan string, error) {
	resp, err := g.send(ctx, g.buildRequest(prompt, opts, true))
	if err != nil {
		return nil, err
	}
	tokens := make(chan string)
	go func() {
		defer close(tokens)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			// SSE frames prefix each payload with "data:".
			if strings.HasPrefix(line, "data:") {
				line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
			if line == "[DONE]" {
				return
			}
			fragment, done, err := decodeStreamLine(line)
			if err != nil {
				g.logger.Warn("undecodable stream line", zap.Error(err))
				continue
			}
			if fragment != "" {
				select {
				case tokens <- fragment:
				case <-ctx.Done():
					return
				}
			}
			if done {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			g.logger.Warn("response stream ended with error", zap.Error(err))
		}
	}()
	return tokens, nil
}

// decodeStreamLine extracts the text fragment from one streamed JSON line,
// accepting the OpenAI delta shape and the Ollama NDJSON shapes.
func decodeStreamLine(line string) (fragment string, done bool, err error) {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return "", false, err
	}
	if len(chunk.Choices) > 0 {
		c := chunk.Choices[0]
		return c.Delta.Content, c.FinishReason != nil && *c.FinishReason != "", nil
	}
	if chunk.Message.Content != "" || chunk.Done {
		return chunk.Message.Content, chunk.Done, nil
	}
	return chunk.Response, chunk.Done, nil
}

func (g *OpenAI) buildRequest(prompt string, opts Options, stream bool) chatRequest {
	req := chatRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Stream:      stream,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Temperature != 0 {
		req.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	return req
}

func (g *OpenAI) send(ctx context.Context, body chatRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("chat request failed: %s: %s", resp.Status, bytes.TrimSpace(b))
	}
	return resp, nil
}
