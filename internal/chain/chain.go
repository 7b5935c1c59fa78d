// Package chain orchestrates retrieve, prompt rendering, and generation
// into a single question-answering flow.
package chain

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotaeru/internal/llm"
	"github.com/hyperjump/kotaeru/internal/models"
	"github.com/hyperjump/kotaeru/internal/retrieval"
	"go.uber.org/zap"
)

// DefaultPromptTemplate renders the retrieved context and the question.
// The first verb receives the context block, the second the question.
const DefaultPromptTemplate = `Answer the following question based on the given context.
If the answer cannot be found in the context, reply with "I cannot answer this question because the necessary information is not in the context."

Context:
%s

Question:
%s

Answer:`

// fallbackContext replaces the context block when retrieval finds nothing.
const fallbackContext = "No relevant information is available."

// Answer is a generated response together with the source documents that
// grounded it.
type Answer struct {
	Text    string            `json:"answer"`
	Sources []models.Document `json:"sources"`
}

// Chain sequences retriever output into a generator call.
type Chain struct {
	retriever *retrieval.Retriever
	generator llm.Generator
	template  string
	genOpts   llm.Options
	logger    *zap.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithPromptTemplate overrides the prompt template. The template must
// contain two %s verbs: context first, question second.
func WithPromptTemplate(t string) Option {
	return func(c *Chain) {
		if t != "" {
			c.template = t
		}
	}
}

// WithGenerateOptions sets the generation options passed on every call.
func WithGenerateOptions(opts llm.Options) Option {
	return func(c *Chain) { c.genOpts = opts }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) { c.logger = l }
}

// New creates a chain over retriever and generator.
func New(retriever *retrieval.Retriever, generator llm.Generator, opts ...Option) *Chain {
	c := &Chain{
		retriever: retriever,
		generator: generator,
		template:  DefaultPromptTemplate,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// prepare retrieves sources for question and renders the prompt.
func (c *Chain) prepare(ctx context.Context, question string) (string, []models.Document, error) {
	docs, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve: %w", err)
	}
	contextBlock := fallbackContext
	if len(docs) > 0 {
		contextBlock = c.retriever.FormatDocuments(docs)
	}
	c.logger.Debug("prepared prompt",
		zap.String("question", question),
		zap.Int("sources", len(docs)))
	return fmt.Sprintf(c.template, contextBlock, question), docs, nil
}

// Run answers question with a blocking generation.
func (c *Chain) Run(ctx context.Context, question string) (Answer, error) {
	prompt, docs, err := c.prepare(ctx, question)
	if err != nil {
		return Answer{}, err
	}
	text, err := c.generator.Generate(ctx, prompt, c.genOpts)
	if err != nil {
		return Answer{}, fmt.Errorf("generate: %w", err)
	}
	return Answer{Text: text, Sources: docs}, nil
}

// RunStream answers question with a streamed generation. The returned
// channel delivers response fragments in order and closes at end of
// answer; the sources are known up front. Abandoning the stream by
// cancelling ctx never corrupts store state: the query path is read-only.
func (c *Chain) RunStream(ctx context.Context, question string) (<-chan string, []models.Document, error) {
	prompt, docs, err := c.prepare(ctx, question)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := c.generator.GenerateStream(ctx, prompt, c.genOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("generate stream: %w", err)
	}
	return tokens, docs, nil
}
