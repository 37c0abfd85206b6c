package summarize

import (
	"context"
	"strings"
	"unicode"

	"vidnotes/internal/services"
)

// Extractive keeps the leading sentences of the transcript. It needs no model
// and only serves plain summaries.
type Extractive struct {
	sentences int
}

// NewExtractive keeps at most sentences sentences (defaults to 8).
func NewExtractive(sentences int) *Extractive {
	if sentences <= 0 {
		sentences = 8
	}
	return &Extractive{sentences: sentences}
}

// Name reports the backend identifier.
func (e *Extractive) Name() string {
	return "extractive"
}

// Summarize returns the first sentences of req.Text, bounded by MaxTokens words.
func (e *Extractive) Summarize(_ context.Context, req Request) (string, error) {
	if req.Instructed {
		return "", services.Wrap(services.ErrConfiguration, stageName, "extractive", "instruction prompts require a model backend", nil)
	}
	sentences := Sentences(req.Text)
	if len(sentences) == 0 {
		return "", services.Wrap(services.ErrValidation, stageName, "extractive", "", ErrEmptySummary)
	}
	if len(sentences) > e.sentences {
		sentences = sentences[:e.sentences]
	}

	kept := make([]string, 0, len(sentences))
	words := 0
	for _, sentence := range sentences {
		n := len(strings.Fields(sentence))
		if req.MaxTokens > 0 && words+n > req.MaxTokens && len(kept) > 0 {
			break
		}
		kept = append(kept, sentence)
		words += n
	}
	return strings.Join(kept, " "), nil
}

// Sentences splits text after terminal punctuation followed by whitespace.
// A trailing fragment without punctuation gets a period.
func Sentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" && s != "." {
			out = append(out, s)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail+".")
	}
	return out
}
