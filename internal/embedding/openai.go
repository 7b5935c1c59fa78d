package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const defaultBatchSize = 50

// OpenAI is an embeddings client for OpenAI-compatible /embeddings
// endpoints (works against OpenAI and Ollama). Requests are retried with
// exponential backoff, honoring Retry-After on 429/5xx. The embedding
// dimensionality is discovered lazily from the first response.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	maxRetries int
	dimensions int
	client     *http.Client
	logger     *zap.Logger
}

// OpenAIConfig configures the embeddings client. APIKeyEnv names the
// environment variable holding the key; an empty key is allowed for
// keyless endpoints such as a local Ollama.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	BatchSize int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewOpenAI creates an embeddings client from cfg, applying defaults for
// unset fields.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-ada-002"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
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
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		maxRetries: 5,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// EmbedQuery embeds a single query string.
func (e *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedDocuments embeds texts in batches. Embedding degrades gracefully:
// a failed batch is retried item by item, and an item that still fails is
// replaced by a zero vector of the established dimensionality so positions
// stay aligned with the documents. EmbedDocuments only errors when the
// dimensionality was never established at all.
func (e *OpenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		vectors, err := e.embed(ctx, batch)
		if err == nil && len(vectors) == len(batch) {
			out = append(out, vectors...)
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("batch embedding failed, retrying item by item",
			zap.Int("batch_start", start),
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		for i, text := range batch {
			vectors, err := e.embed(ctx, []string{text})
			if err == nil && len(vectors) == 1 {
				out = append(out, vectors[0])
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if e.dimensions == 0 {
				return nil, fmt.Errorf("embed document %d: %w", start+i, err)
			}
			e.logger.Warn("embedding failed, substituting zero vector",
				zap.Int("index", start+i),
				zap.Error(err))
			out = append(out, make([]float32, e.dimensions))
		}
	}
	return out, nil
}

// Dimensions returns the embedding dimensionality, 0 before the first
// successful call.
func (e *OpenAI) Dimensions() int { return e.dimensions }

// Close is a no-op; the underlying HTTP client needs no teardown.
func (e *OpenAI) Close() error { return nil }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embed posts one /embeddings request with retry and decodes either the
// OpenAI response shape (data[].embedding) or the Ollama one
// (embeddings[][]).
func (e *OpenAI) embed(ctx context.Context, input []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	payload, err := e.post(ctx, e.baseURL+"/embeddings", body)
	if err != nil {
		return nil, err
	}

	var openaiOut struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) > 0 {
		vectors := make([][]float32, len(openaiOut.Data))
		for i, d := range openaiOut.Data {
			vectors[i] = d.Embedding
		}
		e.noteDimensions(vectors)
		return vectors, nil
	}

	var ollamaOut struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embeddings) > 0 {
		e.noteDimensions(ollamaOut.Embeddings)
		return ollamaOut.Embeddings, nil
	}

	return nil, errors.New("no embedding in response")
}

func (e *OpenAI) noteDimensions(vectors [][]float32) {
	if e.dimensions == 0 && len(vectors) > 0 && len(vectors[0]) > 0 {
		e.dimensions = len(vectors[0])
	}
}

// post sends body to url, retrying on transport errors, 429, and 5xx with
// exponential backoff capped at 5s. A Retry-After header overrides the
// computed delay.
func (e *OpenAI) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if e.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+e.apiKey)
		}
		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					_ = resp.Body.Close()
					lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(time.Duration(secs) * time.Second):
					}
					continue
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings request failed: %s: %s", resp.Status, bytes.TrimSpace(b))
		}
		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return payload, nil
	}
	return nil, lastErr
}

// retryDelay is an exponential backoff starting at 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
