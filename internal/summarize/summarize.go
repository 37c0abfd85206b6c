package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vidnotes/internal/config"
	"vidnotes/internal/services/llm"
)

// ErrEmptySummary indicates the backend returned no text.
var ErrEmptySummary = errors.New("summary is empty")

const stageName = "notes"

// Request describes one summarization call.
type Request struct {
	// Text is the transcript to condense. When Instructed is set it is a
	// complete prompt and is sent to the model verbatim.
	Text       string
	Instructed bool
	MaxTokens  int
	MinTokens  int
}

// Summarizer produces a short text from a transcript or instruction prompt.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
	Name() string
}

// New builds the configured backend.
func New(ctx context.Context, cfg *config.Config) (Summarizer, error) {
	if cfg == nil {
		return nil, errors.New("summarize: config required")
	}
	sc := cfg.Summarization
	switch sc.Backend {
	case config.BackendOpenAI:
		client := llm.NewClient(llm.Config{
			APIKey:         sc.APIKey,
			BaseURL:        sc.BaseURL,
			Model:          sc.Model,
			TimeoutSeconds: sc.TimeoutSeconds,
		}, llm.WithRetryMaxAttempts(sc.RetryAttempts))
		return NewOpenAI(client, sc.Temperature, sc.Seed), nil
	case config.BackendGemini:
		return NewGemini(ctx, GeminiConfig{
			APIKey:         sc.APIKey,
			BaseURL:        sc.BaseURL,
			Model:          sc.Model,
			Temperature:    sc.Temperature,
			Seed:           sc.Seed,
			TimeoutSeconds: sc.TimeoutSeconds,
		})
	case config.BackendExtractive:
		return NewExtractive(sc.ExtractiveSentences), nil
	default:
		return nil, fmt.Errorf("summarize: unsupported backend %q", sc.Backend)
	}
}

// SummaryPrompt wraps a transcript in the instruction used for plain-sentence summaries.
func SummaryPrompt(transcript string, minTokens, maxTokens int) string {
	var b strings.Builder
	b.WriteString("Summarize the following transcript as a short paragraph of plain, complete sentences. ")
	b.WriteString("Do not use headings, lists, or markdown. ")
	if minTokens > 0 && maxTokens > 0 {
		fmt.Fprintf(&b, "Write between %d and %d tokens. ", minTokens, maxTokens)
	} else if maxTokens > 0 {
		fmt.Fprintf(&b, "Write at most %d tokens. ", maxTokens)
	}
	b.WriteString("\n\nTranscript: ")
	b.WriteString(strings.TrimSpace(transcript))
	return b.String()
}

func promptFor(req Request) string {
	if req.Instructed {
		return strings.TrimSpace(req.Text)
	}
	return SummaryPrompt(req.Text, req.MinTokens, req.MaxTokens)
}
