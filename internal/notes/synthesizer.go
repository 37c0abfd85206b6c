package notes

import (
	"context"
	"fmt"
	"strings"

	"vidnotes/internal/config"
	"vidnotes/internal/services"
	"vidnotes/internal/summarize"
)

// Synthesizer produces a notes Document from a transcript using one strategy.
type Synthesizer struct {
	strategy     string
	summarizer   summarize.Summarizer
	maxTokens    int
	minTokens    int
	headingWords int
}

// SynthesizerConfig configures a Synthesizer.
type SynthesizerConfig struct {
	Strategy     string
	MaxTokens    int
	MinTokens    int
	HeadingWords int
}

// NewSynthesizer binds a strategy to a summarizer backend.
func NewSynthesizer(s summarize.Summarizer, cfg SynthesizerConfig) (*Synthesizer, error) {
	if s == nil {
		return nil, fmt.Errorf("notes: summarizer required")
	}
	switch cfg.Strategy {
	case config.StrategySplit, config.StrategyPrompt:
	case "":
		cfg.Strategy = config.StrategySplit
	default:
		return nil, fmt.Errorf("notes: unsupported strategy %q", cfg.Strategy)
	}
	return &Synthesizer{
		strategy:     cfg.Strategy,
		summarizer:   s,
		maxTokens:    cfg.MaxTokens,
		minTokens:    cfg.MinTokens,
		headingWords: cfg.HeadingWords,
	}, nil
}

// Strategy reports the configured strategy.
func (s *Synthesizer) Strategy() string {
	return s.strategy
}

// Backend reports the summarizer backend name.
func (s *Synthesizer) Backend() string {
	return s.summarizer.Name()
}

// Synthesize builds notes for transcript.
func (s *Synthesizer) Synthesize(ctx context.Context, transcript string) (Document, error) {
	doc := Document{Strategy: s.strategy}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return doc, services.Wrap(services.ErrValidation, "notes", s.strategy, "transcript is empty", nil)
	}

	if s.strategy == config.StrategyPrompt {
		reply, err := s.summarizer.Summarize(ctx, summarize.Request{
			Text:       StudyNotesPrompt(transcript),
			Instructed: true,
			MaxTokens:  s.maxTokens,
			MinTokens:  s.minTokens,
		})
		if err != nil {
			return doc, err
		}
		doc.Text = reply
		return doc, nil
	}

	summary, err := s.summarizer.Summarize(ctx, summarize.Request{
		Text:      transcript,
		MaxTokens: s.maxTokens,
		MinTokens: s.minTokens,
	})
	if err != nil {
		return doc, err
	}
	doc.Blocks = Split(summary, s.headingWords)
	if len(doc.Blocks) == 0 {
		return doc, services.Wrap(services.ErrExternalTool, "notes", s.strategy, "summary produced no sentences", summarize.ErrEmptySummary)
	}
	doc.Text = Render(doc.Blocks)
	return doc, nil
}
