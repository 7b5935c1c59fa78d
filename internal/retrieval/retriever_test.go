package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotaeru/internal/models"
	"github.com/hyperjump/kotaeru/internal/vector"
)

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct {
	vec []float32
	err error
}

func (f *fixedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fixedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}

func (f *fixedEmbedder) Dimensions() int { return len(f.vec) }
func (f *fixedEmbedder) Close() error    { return nil }

func seededStore(t *testing.T) vector.Store {
	t.Helper()
	s, err := vector.NewInMemory(vector.MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Add(
		[]models.Document{
			models.NewDocument("close match", map[string]interface{}{"source": "a.txt"}),
			models.NewDocument("orthogonal", map[string]interface{}{"source": "b.txt"}),
			models.NewDocument("second match", map[string]interface{}{"source": "c.txt"}),
		},
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRetriever_Retrieve(t *testing.T) {
	r := New(seededStore(t), &fixedEmbedder{vec: []float32{1, 0}}, WithTopK(2), WithThreshold(0.5))
	docs, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents", len(docs))
	}
	if docs[0].Content != "close match" || docs[1].Content != "second match" {
		t.Errorf("ranked order wrong: %q, %q", docs[0].Content, docs[1].Content)
	}
}

func TestRetriever_RetrieveOverrides(t *testing.T) {
	r := New(seededStore(t), &fixedEmbedder{vec: []float32{1, 0}})
	docs, err := r.Retrieve(context.Background(), "query", TopK(1), Threshold(0.9))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Content != "close match" {
		t.Errorf("override not applied: %v", docs)
	}
}

func TestRetriever_RetrieveEmbedError(t *testing.T) {
	wantErr := errors.New("backend down")
	r := New(seededStore(t), &fixedEmbedder{err: wantErr})
	if _, err := r.Retrieve(context.Background(), "query"); !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped embedder error, got %v", err)
	}
}

func TestRetriever_RetrieveEmptyStore(t *testing.T) {
	s, _ := vector.NewInMemory(vector.MetricCosine)
	r := New(s, &fixedEmbedder{vec: []float32{1, 0}})
	docs, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("empty store should retrieve nothing, got %v", docs)
	}
}

func TestFormatDocuments_Empty(t *testing.T) {
	r := New(seededStore(t), &fixedEmbedder{vec: []float32{1, 0}})
	if got := r.FormatDocuments(nil); got != NoRelevantDocuments {
		t.Errorf("got %q, want sentinel %q", got, NoRelevantDocuments)
	}
}

func TestFormatDocuments_Blocks(t *testing.T) {
	r := New(seededStore(t), &fixedEmbedder{vec: []float32{1, 0}})
	parent := models.NewDocument("ignored", map[string]interface{}{"source": "law.txt"})
	docs := []models.Document{
		models.NewChunk(parent, "first chunk text", 0, 3),
		models.NewDocument("plain document", nil),
	}
	got := r.FormatDocuments(docs)

	if !strings.HasPrefix(got, "[Document 1] Source: law.txt (chunk 1/3)\nfirst chunk text") {
		t.Errorf("first block wrong:\n%s", got)
	}
	if !strings.Contains(got, "\n\n[Document 2] Source: unknown\nplain document") {
		t.Errorf("second block wrong:\n%s", got)
	}
}
