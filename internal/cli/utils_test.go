package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotaeru/internal/chain"
	"github.com/hyperjump/kotaeru/internal/models"
)

func sampleAnswer() chain.Answer {
	return chain.Answer{
		Text: "The capital is Tokyo.",
		Sources: []models.Document{
			{
				ID:      "doc:abc_0",
				Content: "Tokyo is the capital\nof Japan.",
				Metadata: map[string]interface{}{
					models.MetaSource:     "geo.txt",
					models.MetaChunk:      0,
					models.MetaChunkCount: 3,
				},
			},
		},
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputJSON); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}

	var decoded chain.Answer
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Text != "The capital is Tokyo." {
		t.Errorf("decoded answer = %q", decoded.Text)
	}
	if len(decoded.Sources) != 1 || decoded.Sources[0].ID != "doc:abc_0" {
		t.Errorf("decoded sources = %+v", decoded.Sources)
	}
}

func TestWriteAnswer_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputText); err != nil {
		t.Fatalf("WriteAnswer(text): %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "The capital is Tokyo.") {
		t.Errorf("output missing answer:\n%s", out)
	}
	if !strings.Contains(out, "geo.txt (chunk 1/3)") {
		t.Errorf("output missing source label:\n%s", out)
	}
	// Multi-line chunk content previews on one line.
	if !strings.Contains(out, "Tokyo is the capital of Japan.") {
		t.Errorf("output missing flattened preview:\n%s", out)
	}
}

func TestWriteAnswer_textNoSources(t *testing.T) {
	var buf bytes.Buffer
	answer := chain.Answer{Text: "I cannot answer this."}
	if err := WriteAnswer(&buf, answer, OutputText); err != nil {
		t.Fatalf("WriteAnswer: %v", err)
	}
	if strings.Contains(buf.String(), "Sources") {
		t.Errorf("unexpected sources section:\n%s", buf.String())
	}
}

func TestWriteSources(t *testing.T) {
	var buf bytes.Buffer
	WriteSources(&buf, sampleAnswer().Sources)
	if !strings.Contains(buf.String(), "geo.txt") {
		t.Errorf("output missing source:\n%s", buf.String())
	}

	buf.Reset()
	WriteSources(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty sources, got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"hello", 0, "hello"},
		{"héllo wörld", 5, "héllo..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}
