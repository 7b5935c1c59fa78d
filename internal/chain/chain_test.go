package chain

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/kotaeru/internal/embedding"
	"github.com/hyperjump/kotaeru/internal/llm"
	"github.com/hyperjump/kotaeru/internal/models"
	"github.com/hyperjump/kotaeru/internal/retrieval"
	"github.com/hyperjump/kotaeru/internal/vector"
)

func seededRetriever(t *testing.T, opts ...retrieval.Option) *retrieval.Retriever {
	t.Helper()

	store, err := vector.NewInMemory(vector.MetricCosine)
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	emb := embedding.NewMockEmbedder(8)

	docs := []models.Document{
		models.NewDocument("The capital of Japan is Tokyo.", map[string]interface{}{
			models.MetaSource: "geography.txt",
		}),
		models.NewDocument("Water boils at 100 degrees Celsius.", map[string]interface{}{
			models.MetaSource: "physics.txt",
		}),
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := emb.EmbedDocuments(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedDocuments: %v", err)
	}
	if err := store.Add(docs, vecs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return retrieval.New(store, emb, opts...)
}

func TestChain_Run(t *testing.T) {
	gen := &llm.Mock{Response: "Tokyo is the capital."}
	c := New(seededRetriever(t, retrieval.WithThreshold(-1)), gen)

	ans, err := c.Run(context.Background(), "What is the capital of Japan?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ans.Text != "Tokyo is the capital." {
		t.Errorf("answer = %q", ans.Text)
	}
	if len(ans.Sources) == 0 {
		t.Fatal("expected sources in answer")
	}

	if len(gen.Prompts) != 1 {
		t.Fatalf("generator saw %d prompts, want 1", len(gen.Prompts))
	}
	prompt := gen.Prompts[0]
	if !strings.Contains(prompt, "What is the capital of Japan?") {
		t.Errorf("prompt missing question:\n%s", prompt)
	}
	if !strings.Contains(prompt, "The capital of Japan is Tokyo.") {
		t.Errorf("prompt missing retrieved context:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[Document 1] Source:") {
		t.Errorf("prompt missing formatted source header:\n%s", prompt)
	}
}

func TestChain_RunFallbackContext(t *testing.T) {
	// Threshold above any possible cosine score: retrieval yields nothing.
	gen := &llm.Mock{Response: "I cannot answer this question because the necessary information is not in the context."}
	c := New(seededRetriever(t, retrieval.WithThreshold(2)), gen)

	ans, err := c.Run(context.Background(), "Who wrote Hamlet?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("sources = %d, want 0", len(ans.Sources))
	}
	if !strings.Contains(gen.Prompts[0], fallbackContext) {
		t.Errorf("prompt missing fallback context:\n%s", gen.Prompts[0])
	}
}

func TestChain_CustomTemplate(t *testing.T) {
	gen := &llm.Mock{Response: "ok"}
	c := New(
		seededRetriever(t, retrieval.WithThreshold(-1)),
		gen,
		WithPromptTemplate("CTX=%s Q=%s"),
	)

	if _, err := c.Run(context.Background(), "why?"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	prompt := gen.Prompts[0]
	if !strings.HasPrefix(prompt, "CTX=") || !strings.HasSuffix(prompt, "Q=why?") {
		t.Errorf("custom template not applied: %q", prompt)
	}
}

func TestChain_RunStream(t *testing.T) {
	gen := &llm.Mock{Response: "streamed answer text"}
	c := New(seededRetriever(t, retrieval.WithThreshold(-1)), gen)

	tokens, sources, err := c.RunStream(context.Background(), "question")
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	if len(sources) == 0 {
		t.Fatal("expected sources")
	}
	var sb strings.Builder
	for tok := range tokens {
		sb.WriteString(tok)
	}
	if sb.String() != "streamed answer text" {
		t.Errorf("reassembled stream = %q", sb.String())
	}
}

func TestChain_GeneratorError(t *testing.T) {
	gen := &llm.Mock{Err: context.DeadlineExceeded}
	c := New(seededRetriever(t, retrieval.WithThreshold(-1)), gen)

	if _, err := c.Run(context.Background(), "question"); err == nil {
		t.Fatal("expected generation error")
	}
}
