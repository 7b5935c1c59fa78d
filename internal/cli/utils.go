// Package cli provides output helpers for the Kotaeru command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hyperjump/kotaeru/internal/chain"
	"github.com/hyperjump/kotaeru/internal/models"
)

// AnswerOutputFormat is the format for answer output.
type AnswerOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText AnswerOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON AnswerOutputFormat = "json"
)

// WriteAnswer writes an answer to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteAnswer(w io.Writer, answer chain.Answer, format AnswerOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	default:
		writeAnswerText(w, answer)
		return nil
	}
}

var (
	answerColor = color.New(color.FgWhite, color.Bold)
	sourceColor = color.New(color.FgCyan)
	faintColor  = color.New(color.Faint)
)

func writeAnswerText(w io.Writer, answer chain.Answer) {
	answerColor.Fprintln(w, answer.Text)
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	sourceColor.Fprintf(w, "Sources (%d):\n", len(answer.Sources))
	for i, doc := range answer.Sources {
		label := doc.Source("unknown")
		if idx, count, ok := doc.ChunkInfo(); ok {
			label = fmt.Sprintf("%s (chunk %d/%d)", label, idx+1, count)
		}
		sourceColor.Fprintf(w, "  %d. %s\n", i+1, label)
		faintColor.Fprintf(w, "     %s\n", Truncate(flatten(doc.Content), 160))
	}
}

// PrintAnswer prints an answer to stdout in text format.
func PrintAnswer(answer chain.Answer) {
	_ = WriteAnswer(os.Stdout, answer, OutputText)
}

// WriteSources writes just the source list, used after a streamed answer
// whose text already went to the terminal token by token.
func WriteSources(w io.Writer, sources []models.Document) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	sourceColor.Fprintf(w, "Sources (%d):\n", len(sources))
	for i, doc := range sources {
		sourceColor.Fprintf(w, "  %d. %s\n", i+1, doc.Source("unknown"))
	}
}

// flatten collapses whitespace runs so a chunk previews as a single line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
